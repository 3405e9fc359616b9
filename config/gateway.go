package config

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/egilehq/marketing/gateway"
)

// NewGatewayClient builds a gateway client from the configuration,
// wiring up only the credential sources the config enables. AWS
// clients are constructed lazily: the Secrets Manager store and STS
// token source are created only when a secret name or role ARN is
// configured.
func NewGatewayClient(ctx context.Context, cfg *Config, logger zerolog.Logger) (*gateway.Client, error) {
	var secrets gateway.SecretStore
	if cfg.Gateway.SecretName != "" {
		store, err := gateway.NewSecretsManagerStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create secrets manager store: %w", err)
		}
		secrets = store
	}

	var tokens gateway.TokenSource
	if cfg.Gateway.RoleARN != "" {
		source, err := gateway.NewSTSTokenSource(ctx, gateway.STSTokenSourceConfig{
			RoleARN:            cfg.Gateway.RoleARN,
			UseManagedIdentity: cfg.Gateway.UseManagedIdentity,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create sts token source: %w", err)
		}
		tokens = source
	}

	creds := gateway.NewCredentialProvider(gateway.CredentialProviderConfig{
		APIKey:     cfg.Gateway.APIKey,
		SecretName: cfg.Gateway.SecretName,
		TokenScope: cfg.Gateway.TokenScope,
	}, secrets, tokens, logger)

	client := gateway.NewClient(creds, gateway.ClientConfig{
		Endpoint:     cfg.Gateway.Endpoint,
		DefaultModel: cfg.Gateway.Model,
		Timeout:      time.Duration(cfg.Gateway.Timeout) * time.Second,
		MaxAttempts:  cfg.Gateway.MaxAttempts,
	}, logger)

	return client, nil
}
