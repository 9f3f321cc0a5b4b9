package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/matthieukhl/loyaltydesk/internal/config"
	"github.com/matthieukhl/loyaltydesk/internal/crm"
	"github.com/matthieukhl/loyaltydesk/internal/mockdata"
	"github.com/matthieukhl/loyaltydesk/internal/retry"
	"github.com/matthieukhl/loyaltydesk/internal/types"
)

// RetryPolicy builds the retry policy from configuration
func RetryPolicy(cfg config.RetryConfig, logger *slog.Logger) retry.Policy {
	return retry.Policy{MaxRetries: cfg.MaxRetries, Delay: cfg.Delay, Logger: logger}
}

// New creates a data source based on configuration
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (types.DataSource, error) {
	switch cfg.Source.Provider {
	case "live":
		return NewLive(ctx, cfg, logger)
	case "mock":
		return NewMock(cfg.Mock)
	default:
		return nil, fmt.Errorf("unsupported data source provider: %s", cfg.Source.Provider)
	}
}

// NewMock serves the embedded fixtures
func NewMock(cfg config.MockConfig) (*mockdata.Client, error) {
	data, err := mockdata.Load()
	if err != nil {
		return nil, err
	}
	return mockdata.NewClient(data, mockdata.Options{
		Latency:     cfg.Latency,
		FailureRate: cfg.FailureRate,
		Seed:        cfg.Seed,
	}), nil
}

// NewLive wires the token provider and client for the configured CRM
func NewLive(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*crm.Client, error) {
	var secrets config.SecretGetter
	if cfg.CRM.SecretARN != "" {
		awsCfg, err := config.LoadAWS(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		secrets = secretsmanager.NewFromConfig(awsCfg)
	}

	creds, err := cfg.CRM.ResolveCredentials(ctx, secrets)
	if err != nil {
		return nil, err
	}

	var grant crm.Grant
	switch cfg.CRM.AuthFlow {
	case config.AuthJWTBearer:
		grant, err = crm.LoadJWTBearer(creds.ClientID, cfg.CRM.Username, cfg.CRM.BaseURL, cfg.CRM.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
	default:
		grant = crm.ClientCredentials{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret}
	}

	httpClient := &http.Client{Timeout: cfg.CRM.Timeout}
	policy := RetryPolicy(cfg.Retry, logger)

	return crm.NewClient(crm.Options{
		BaseURL:           cfg.CRM.BaseURL,
		APIVersion:        cfg.CRM.APIVersion,
		HTTPClient:        httpClient,
		Tokens:            crm.NewTokenProvider(cfg.CRM.BaseURL, grant, httpClient, policy),
		Retry:             policy,
		FanOutLimit:       cfg.CRM.FanOutLimit,
		Logger:            logger,
		OrderRecordTypeID: cfg.Loyalty.OrderRecordTypeID,
	}), nil
}
