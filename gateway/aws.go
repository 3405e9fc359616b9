package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
)

// DefaultTokenDuration is the requested lifetime for identity tokens.
const DefaultTokenDuration = time.Hour

// secretsManagerAPI is the subset of the Secrets Manager client used by
// SecretsManagerStore (injectable for testing).
type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerStore implements SecretStore backed by AWS Secrets
// Manager. The store client authenticates via the default identity
// chain, so fetching a secret itself requires a resolvable identity.
type SecretsManagerStore struct {
	api secretsManagerAPI
}

// NewSecretsManagerStore creates a SecretsManagerStore using the default
// credential chain from the host environment.
func NewSecretsManagerStore(ctx context.Context) (*SecretsManagerStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, NewAuthenticationError("loading identity configuration for secret store", err)
	}
	return &SecretsManagerStore{api: secretsmanager.NewFromConfig(cfg)}, nil
}

// GetSecret implements SecretStore.
func (s *SecretsManagerStore) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	return *out.SecretString, nil
}

// stsAssumeRoler is the subset of the STS client used by STSTokenSource
// (injectable for testing).
type stsAssumeRoler interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// STSTokenSource implements TokenSource by assuming an IAM role and
// using the session token as a bearer credential. Construction prefers
// instance-role (managed identity) credentials and falls back to the
// default chain when none are available.
type STSTokenSource struct {
	api      stsAssumeRoler
	roleARN  string
	duration time.Duration
}

// STSTokenSourceConfig configures an STSTokenSource.
type STSTokenSourceConfig struct {
	RoleARN string
	// UseManagedIdentity prefers instance/container role credentials
	// before the default chain.
	UseManagedIdentity bool
	// Duration is the requested token lifetime. Defaults to
	// DefaultTokenDuration.
	Duration time.Duration
}

// NewSTSTokenSource creates an STSTokenSource.
func NewSTSTokenSource(ctx context.Context, cfg STSTokenSourceConfig, logger zerolog.Logger) (*STSTokenSource, error) {
	if cfg.RoleARN == "" {
		return nil, NewAuthenticationError("token source requires a role ARN", nil)
	}

	var awsCfg aws.Config
	var err error
	if cfg.UseManagedIdentity {
		awsCfg, err = managedIdentityConfig(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("Instance role credentials unavailable; falling back to default chain")
			awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		}
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
	}
	if err != nil {
		return nil, NewAuthenticationError("loading identity configuration for token source", err)
	}

	duration := cfg.Duration
	if duration <= 0 {
		duration = DefaultTokenDuration
	}

	return &STSTokenSource{
		api:      sts.NewFromConfig(awsCfg),
		roleARN:  cfg.RoleARN,
		duration: duration,
	}, nil
}

// managedIdentityConfig builds an aws.Config from instance-role
// credentials, verifying they are actually retrievable.
func managedIdentityConfig(ctx context.Context) (aws.Config, error) {
	provider := ec2rolecreds.New(func(o *ec2rolecreds.Options) {
		o.Client = imds.New(imds.Options{})
	})
	if _, err := provider.Retrieve(ctx); err != nil {
		return aws.Config{}, err
	}
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(provider)))
}

// GetToken implements TokenSource. The scope becomes the role session
// name so token issuance is attributable in audit logs.
func (s *STSTokenSource) GetToken(ctx context.Context, scope string) (*Token, error) {
	sessionName := scope
	if sessionName == "" {
		sessionName = "marketing-gateway"
	}

	out, err := s.api.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(s.roleARN),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int32(int32(s.duration.Seconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("assuming role %s: %w", s.roleARN, err)
	}
	if out.Credentials == nil || out.Credentials.SessionToken == nil {
		return nil, fmt.Errorf("identity service returned empty credentials for role %s", s.roleARN)
	}

	return &Token{
		Value:     aws.ToString(out.Credentials.SessionToken),
		ExpiresAt: aws.ToTime(out.Credentials.Expiration),
	}, nil
}
