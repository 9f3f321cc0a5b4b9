// Package crm talks to the CRM REST API: token acquisition, paginated
// queries, custom create actions and the typed record reads built on them.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/retry"
)

const (
	DefaultAPIVersion  = "v62.0"
	DefaultFanOutLimit = 4

	fetchFailedMsg  = "Could not load data from the CRM."
	submitFailedMsg = "Could not submit the request to the CRM."
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	APIVersion  string
	HTTPClient  *http.Client
	Tokens      *TokenProvider
	Retry       retry.Policy
	FanOutLimit int
	Logger      *slog.Logger

	// Defaults applied to created orders
	OrderRecordTypeID string
}

// Client is the live data source.
type Client struct {
	baseURL     string
	apiVersion  string
	http        *http.Client
	tokens      *TokenProvider
	policy      retry.Policy
	fanOutLimit int
	logger      *slog.Logger

	orderRecordTypeID string
	now               func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.FanOutLimit < 1 {
		opts.FanOutLimit = DefaultFanOutLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = opts.Logger
	}
	return &Client{
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		apiVersion:        opts.APIVersion,
		http:              opts.HTTPClient,
		tokens:            opts.Tokens,
		policy:            opts.Retry,
		fanOutLimit:       opts.FanOutLimit,
		logger:            opts.Logger,
		orderRecordTypeID: opts.OrderRecordTypeID,
		now:               time.Now,
	}
}

func (c *Client) Name() string {
	return "live"
}

type queryResponse[T any] struct {
	TotalSize      int    `json:"totalSize"`
	Done           bool   `json:"done"`
	Records        []T    `json:"records"`
	NextRecordsURL string `json:"nextRecordsUrl"`
}

// Query runs a read query and decodes every record, following
// nextRecordsUrl until the result set is done. The whole read is retried
// under the client's policy.
func Query[T any](ctx context.Context, c *Client, soql string) ([]T, error) {
	return retry.Do(ctx, c.policy, "query", func(ctx context.Context) ([]T, error) {
		return queryOnce[T](ctx, c, soql)
	})
}

func queryOnce[T any](ctx context.Context, c *Client, soql string) ([]T, error) {
	path := fmt.Sprintf("/services/data/%s/query?%s", c.apiVersion, url.Values{"q": {soql}}.Encode())

	var records []T
	for path != "" {
		var page queryResponse[T]
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.Done {
			break
		}
		path = page.NextRecordsURL
	}
	return records, nil
}

// Create posts body to a custom action. A response with success=false is a
// domain failure carrying the server's message. Creates are not retried.
func (c *Client) Create(ctx context.Context, action string, body any) (models.CreationResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.CreationResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result models.CreationResult
	path := "/services/apexrest/" + strings.Trim(action, "/") + "/"
	if err := c.do(ctx, http.MethodPost, path, payload, &result); err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.Fetch {
			ae.PublicMsg = submitFailedMsg
		}
		return models.CreationResult{}, err
	}

	if !result.Success {
		return result, apperr.DomainErr(result.Message)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	base := c.baseURL
	if token.InstanceURL != "" {
		base = strings.TrimRight(token.InstanceURL, "/")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.FetchErr(fetchFailedMsg, fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	c.logger.Debug("crm request",
		slog.String("method", method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", c.now().Sub(started)))

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.FetchErr(fetchFailedMsg, fmt.Errorf("CRM API error %d: %s", resp.StatusCode, string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.FetchErr(fetchFailedMsg, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
