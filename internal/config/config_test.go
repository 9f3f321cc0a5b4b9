package config

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

func defaultsOnly(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	cfg, err := unmarshal(v)
	if err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultsOnly(t)
	if cfg.Source.Provider != "mock" {
		t.Errorf("provider = %q, want mock", cfg.Source.Provider)
	}
	if cfg.Retry.MaxRetries != 2 || cfg.Retry.Delay != time.Second {
		t.Errorf("retry = %+v, want 2 retries 1s apart", cfg.Retry)
	}
	if cfg.CRM.APIVersion != "v62.0" {
		t.Errorf("api version = %q", cfg.CRM.APIVersion)
	}
	if cfg.Mock.FailureRate != 0 {
		t.Errorf("simulated failures must be off by default, got %v", cfg.Mock.FailureRate)
	}
	if cfg.Loyalty.MinTransferPoints != 1000 || cfg.Loyalty.PointsPerCurrencyUnit != 10 {
		t.Errorf("loyalty = %+v", cfg.Loyalty)
	}
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	t.Setenv("LOYALTY_CRM_BASE_URL", "https://crm.example.com")
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LOYALTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	yaml := `
source:
  provider: live
crm:
  fanout_limit: 8
retry:
  delay: 250ms
`
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatal(err)
	}
	cfg, err := unmarshal(v)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.CRM.BaseURL != "https://crm.example.com" {
		t.Errorf("base url from env = %q", cfg.CRM.BaseURL)
	}
	if cfg.CRM.FanOutLimit != 8 || cfg.Retry.Delay != 250*time.Millisecond {
		t.Errorf("yaml values not applied: %+v %+v", cfg.CRM, cfg.Retry)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultsOnly(t)
	cfg.Source.Provider = "live"
	cfg.CRM.AuthFlow = AuthJWTBearer
	cfg.Retry.MaxRetries = -1
	cfg.Mock.FailureRate = 2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	// base_url, username, private_key_path, max_retries, failure_rate
	if n := len(multierr.Errors(err)); n != 5 {
		t.Errorf("got %d errors, want 5: %v", n, err)
	}
}

type fakeSecrets struct {
	value string
	err   error
	calls int
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.value)}, nil
}

func TestResolveCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("direct values win", func(t *testing.T) {
		sm := &fakeSecrets{}
		c := CRMConfig{ClientID: "id", ClientSecret: "secret", SecretARN: "arn:x"}
		creds, err := c.ResolveCredentials(ctx, sm)
		if err != nil || creds.ClientID != "id" || creds.ClientSecret != "secret" {
			t.Fatalf("creds = %+v, err = %v", creds, err)
		}
		if sm.calls != 0 {
			t.Error("secrets manager should not be called")
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("TEST_CRM_ID", "env-id")
		t.Setenv("TEST_CRM_SECRET", "env-secret")
		c := CRMConfig{ClientIDEnv: "TEST_CRM_ID", ClientSecretEnv: "TEST_CRM_SECRET"}
		creds, err := c.ResolveCredentials(ctx, nil)
		if err != nil || creds.ClientID != "env-id" || creds.ClientSecret != "env-secret" {
			t.Fatalf("creds = %+v, err = %v", creds, err)
		}
	})

	t.Run("secrets manager", func(t *testing.T) {
		sm := &fakeSecrets{value: `{"client_id":"sm-id","client_secret":"sm-secret"}`}
		c := CRMConfig{SecretARN: "arn:aws:secretsmanager:eu-central-1:1:secret:crm"}
		creds, err := c.ResolveCredentials(ctx, sm)
		if err != nil || creds.ClientID != "sm-id" || creds.ClientSecret != "sm-secret" {
			t.Fatalf("creds = %+v, err = %v", creds, err)
		}
	})

	t.Run("secret lookup failure", func(t *testing.T) {
		sm := &fakeSecrets{err: errors.New("access denied")}
		c := CRMConfig{SecretARN: "arn:x"}
		if _, err := c.ResolveCredentials(ctx, sm); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("missing", func(t *testing.T) {
		c := CRMConfig{ClientIDEnv: "TEST_CRM_UNSET_ID", ClientSecretEnv: "TEST_CRM_UNSET_SECRET"}
		if _, err := c.ResolveCredentials(ctx, nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("jwt bearer needs no secret", func(t *testing.T) {
		c := CRMConfig{ClientID: "id", AuthFlow: AuthJWTBearer}
		if _, err := c.ResolveCredentials(ctx, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
