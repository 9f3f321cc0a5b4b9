package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/matthieukhl/loyaltydesk/internal/config"
)

type fakePresigner struct {
	key     string
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.key = aws.ToString(in.Key)
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://" + aws.ToString(in.Bucket) + ".s3.amazonaws.com/" + f.key + "?X-Amz-Signature=abc"}, nil
}

func TestPresignedURL(t *testing.T) {
	p := &fakePresigner{}
	r := NewResolver(p, config.AssetsConfig{Bucket: "rewards", Prefix: "/catalog/", URLTTL: 15 * time.Minute})

	got, err := r.URL(context.Background(), "gift-card.png")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://rewards.s3.amazonaws.com/catalog/gift-card.png?X-Amz-Signature=abc" {
		t.Errorf("url = %s", got)
	}
	if p.expires != 15*time.Minute {
		t.Errorf("expires = %v", p.expires)
	}

	p.err = errors.New("no credentials")
	if _, err := r.URL(context.Background(), "x.png"); err == nil {
		t.Error("expected presign error")
	}
}

func TestBaseURLJoin(t *testing.T) {
	r := NewResolver(nil, config.AssetsConfig{BaseURL: "https://cdn.example.com/", Prefix: "img"})
	tests := map[string]string{
		"gift-card.png":                   "https://cdn.example.com/img/gift-card.png",
		"/membership.png":                 "https://cdn.example.com/img/membership.png",
		"https://other.example.com/a.png": "https://other.example.com/a.png",
		"":                                "",
	}
	for ref, want := range tests {
		got, err := r.URL(context.Background(), ref)
		if err != nil || got != want {
			t.Errorf("URL(%q) = %q, %v want %q", ref, got, err, want)
		}
	}
}

func TestNoAssetConfig(t *testing.T) {
	r, err := New(context.Background(), &config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := r.URL(context.Background(), "gift-card.png"); got != "gift-card.png" {
		t.Errorf("url = %s", got)
	}
}
