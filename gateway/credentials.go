package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultStaleAfter is the token age after which a proactive refresh is
// attempted. Tokens live roughly an hour; refreshing at 55 minutes keeps
// a valid token in hand before expiry.
const DefaultStaleAfter = 55 * time.Minute

// CredentialKind identifies how a credential authenticates requests.
type CredentialKind string

const (
	CredentialAPIKey CredentialKind = "api_key"
	CredentialToken  CredentialKind = "token"
)

// Credential is an access credential resolved by a CredentialProvider.
// API keys do not expire; tokens carry an expiry and are refreshed
// when stale.
type Credential struct {
	Kind       CredentialKind
	Value      string
	ObtainedAt time.Time
	ExpiresAt  time.Time
}

// SecretStore fetches named secrets from an external secret store.
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Token is a short-lived identity-service token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenSource issues identity-service tokens for a scope.
type TokenSource interface {
	GetToken(ctx context.Context, scope string) (*Token, error)
}

// CredentialProviderConfig configures the resolution chain.
type CredentialProviderConfig struct {
	// APIKey is an explicit API key. When set it always wins.
	APIKey string
	// SecretName names a secret holding an API key in the secret store.
	SecretName string
	// TokenScope is the scope requested from the token source.
	TokenScope string
	// StaleAfter overrides DefaultStaleAfter when positive.
	StaleAfter time.Duration
}

// CredentialProvider resolves and caches an access credential via an
// ordered fallback chain: explicit API key, then a secret-store secret,
// then an identity-service token. The chain runs on first use; the
// resolved credential is reused until invalidated or, for tokens,
// refreshed once stale.
//
// Safe for concurrent use. Concurrent staleness triggers cause exactly
// one refresh; other callers wait for its result.
type CredentialProvider struct {
	apiKey     string
	secretName string
	scope      string
	secrets    SecretStore
	tokens     TokenSource
	staleAfter time.Duration
	now        func() time.Time
	logger     zerolog.Logger

	mu         sync.Mutex
	cached     *Credential
	generation uint64
}

// NewCredentialProvider creates a CredentialProvider. Either secrets or
// tokens may be nil; the corresponding strategy is then skipped.
func NewCredentialProvider(cfg CredentialProviderConfig, secrets SecretStore, tokens TokenSource, logger zerolog.Logger) *CredentialProvider {
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &CredentialProvider{
		apiKey:     cfg.APIKey,
		secretName: cfg.SecretName,
		scope:      cfg.TokenScope,
		secrets:    secrets,
		tokens:     tokens,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger.With().Str("component", "credentialProvider").Logger(),
	}
}

// Resolve returns the cached credential, running the fallback chain on
// first use. It returns an authentication error when every strategy is
// exhausted.
func (p *CredentialProvider) Resolve(ctx context.Context) (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}

	cred, err := p.resolveLocked(ctx)
	if err != nil {
		return Credential{}, err
	}
	p.cached = cred
	p.generation++
	return *cred, nil
}

// resolveLocked runs the strategy chain. Caller holds p.mu.
func (p *CredentialProvider) resolveLocked(ctx context.Context) (*Credential, error) {
	if p.apiKey != "" {
		p.logger.Info().Msg("Using explicit API key for authentication")
		return &Credential{
			Kind:       CredentialAPIKey,
			Value:      p.apiKey,
			ObtainedAt: p.now(),
		}, nil
	}

	if p.secretName != "" && p.secrets != nil {
		value, err := p.secrets.GetSecret(ctx, p.secretName)
		if err != nil {
			p.logger.Error().Err(err).Str("secret_name", p.secretName).Msg("Failed to retrieve API key from secret store")
			return nil, NewAuthenticationError("failed to retrieve API key from secret store", err)
		}
		p.logger.Info().Str("secret_name", p.secretName).Msg("Retrieved API key from secret store")
		return &Credential{
			Kind:       CredentialAPIKey,
			Value:      value,
			ObtainedAt: p.now(),
		}, nil
	}

	if p.tokens != nil {
		token, err := p.tokens.GetToken(ctx, p.scope)
		if err != nil {
			p.logger.Error().Err(err).Msg("Failed to obtain identity token")
			return nil, NewAuthenticationError("failed to obtain identity token", err)
		}
		p.logger.Info().Time("expires_at", token.ExpiresAt).Msg("Using identity token for authentication")
		return &Credential{
			Kind:       CredentialToken,
			Value:      token.Value,
			ObtainedAt: p.now(),
			ExpiresAt:  token.ExpiresAt,
		}, nil
	}

	return nil, NewAuthenticationError("no credential strategy configured: set an API key, a secret name, or a token source", nil)
}

// RefreshIfStale refreshes a cached identity token once its age exceeds
// the staleness threshold. It is a no-op for API-key credentials. A
// refresh failure is logged and swallowed; the stale token is reused
// until a dependent call fails through the client's normal error path.
func (p *CredentialProvider) RefreshIfStale(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil || p.cached.Kind != CredentialToken {
		return
	}
	// Re-check under the lock: another caller may have just refreshed.
	if p.now().Sub(p.cached.ObtainedAt) <= p.staleAfter {
		return
	}

	token, err := p.tokens.GetToken(ctx, p.scope)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to refresh identity token; reusing stale token")
		return
	}

	p.cached = &Credential{
		Kind:       CredentialToken,
		Value:      token.Value,
		ObtainedAt: p.now(),
		ExpiresAt:  token.ExpiresAt,
	}
	p.generation++
	p.logger.Info().Time("expires_at", token.ExpiresAt).Msg("Refreshed identity token")
}

// Generation returns a counter that increments whenever the cached
// credential changes. Callers use it to rebuild connections lazily
// after a credential change.
func (p *CredentialProvider) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Invalidate discards the cached credential. The chain re-runs on the
// next Resolve.
func (p *CredentialProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}
