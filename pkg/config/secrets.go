package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ErrEmptySecret is returned when the credentials secret has no string value.
var ErrEmptySecret = errors.New("secret has no string value")

// SecretsClient is the part of the Secrets Manager API used here.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Credentials is the JSON document stored in the credentials secret.
type Credentials struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ResolveCredentials fills host, username and password from
// cfg.CredentialsSecret. It does nothing when no secret is configured.
func ResolveCredentials(ctx context.Context, cfg *Config) error {
	if cfg.CredentialsSecret == "" {
		return nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	return resolveCredentials(ctx, secretsmanager.NewFromConfig(awsCfg), cfg)
}

func resolveCredentials(ctx context.Context, sm SecretsClient, cfg *Config) error {
	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.CredentialsSecret),
	})
	if err != nil {
		return fmt.Errorf("get secret %s: %w", cfg.CredentialsSecret, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return fmt.Errorf("%w: %s", ErrEmptySecret, cfg.CredentialsSecret)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return fmt.Errorf("decode secret %s: %w", cfg.CredentialsSecret, err)
	}

	if creds.Host != "" {
		cfg.Host = creds.Host
		cfg.Normalize()
	}
	if creds.Username != "" {
		cfg.Username = creds.Username
	}
	if creds.Password != "" {
		cfg.Password = creds.Password
	}

	if cfg.Username == "" {
		return fmt.Errorf("%w: no username in config or secret %s", ErrInvalidConfig, cfg.CredentialsSecret)
	}
	return nil
}
