package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Credentials is the client identifier/secret pair for the CRM token endpoint
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// SecretGetter is the subset of the Secrets Manager client we use
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadAWS loads the shared AWS configuration for the configured region
func LoadAWS(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return awsCfg, nil
}

// ResolveCredentials finds the CRM client credentials. Values set directly in
// config win, then the named environment variables, then the Secrets Manager
// secret when crm.secret_arn is set.
func (c CRMConfig) ResolveCredentials(ctx context.Context, sm SecretGetter) (Credentials, error) {
	creds := Credentials{ClientID: c.ClientID, ClientSecret: c.ClientSecret}

	if creds.ClientID == "" && c.ClientIDEnv != "" {
		creds.ClientID = os.Getenv(c.ClientIDEnv)
	}
	if creds.ClientSecret == "" && c.ClientSecretEnv != "" {
		creds.ClientSecret = os.Getenv(c.ClientSecretEnv)
	}

	if (creds.ClientID == "" || creds.ClientSecret == "") && c.SecretARN != "" {
		if sm == nil {
			return Credentials{}, fmt.Errorf("crm.secret_arn is set but no secrets client is available")
		}
		fromSecret, err := getSecret(ctx, sm, c.SecretARN)
		if err != nil {
			return Credentials{}, err
		}
		if creds.ClientID == "" {
			creds.ClientID = fromSecret.ClientID
		}
		if creds.ClientSecret == "" {
			creds.ClientSecret = fromSecret.ClientSecret
		}
	}

	if creds.ClientID == "" {
		return Credentials{}, fmt.Errorf("CRM client id not found in config, environment variable %s or secret", c.ClientIDEnv)
	}
	// The JWT bearer flow signs with a private key instead of a secret
	if creds.ClientSecret == "" && c.AuthFlow != AuthJWTBearer {
		return Credentials{}, fmt.Errorf("CRM client secret not found in config, environment variable %s or secret", c.ClientSecretEnv)
	}
	return creds, nil
}

func getSecret(ctx context.Context, sm SecretGetter, secretArn string) (Credentials, error) {
	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretArn)})
	if err != nil {
		return Credentials{}, fmt.Errorf("get secret: %w", err)
	}
	if out.SecretString == nil {
		return Credentials{}, fmt.Errorf("secret %s has no string value", secretArn)
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse secret: %w", err)
	}
	return creds, nil
}
