// Package assets turns catalog image references into URLs.
package assets

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/matthieukhl/loyaltydesk/internal/config"
)

// Presigner is the part of the S3 presign client used here
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Resolver maps an image reference to a URL. With a bucket it presigns
// a GET on prefix/ref; otherwise it joins ref onto the base URL.
type Resolver struct {
	presign Presigner
	bucket  string
	prefix  string
	baseURL string
	ttl     time.Duration
}

func NewResolver(presign Presigner, cfg config.AssetsConfig) *Resolver {
	return &Resolver{
		presign: presign,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		ttl:     cfg.URLTTL,
	}
}

// New builds a resolver, creating the S3 presign client only when a bucket
// is configured.
func New(ctx context.Context, cfg *config.Config) (*Resolver, error) {
	if cfg.Assets.Bucket == "" {
		return NewResolver(nil, cfg.Assets), nil
	}
	awsCfg, err := config.LoadAWS(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	return NewResolver(s3.NewPresignClient(s3.NewFromConfig(awsCfg)), cfg.Assets), nil
}

func (r *Resolver) key(ref string) string {
	ref = strings.TrimLeft(ref, "/")
	if r.prefix == "" {
		return ref
	}
	return path.Join(r.prefix, ref)
}

// URL resolves ref. Absolute URLs and empty refs are returned unchanged.
func (r *Resolver) URL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref, nil
	}

	if r.bucket != "" && r.presign != nil {
		req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(r.key(ref)),
		}, s3.WithPresignExpires(r.ttl))
		if err != nil {
			return "", fmt.Errorf("failed to presign %s: %w", ref, err)
		}
		return req.URL, nil
	}

	if r.baseURL != "" {
		return r.baseURL + "/" + r.key(ref), nil
	}
	return ref, nil
}
