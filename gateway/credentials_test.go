package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeSecretStore struct {
	value string
	err   error
	calls int
}

func (f *fakeSecretStore) GetSecret(ctx context.Context, name string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.value, nil
}

type fakeTokenSource struct {
	mu     sync.Mutex
	token  *Token
	err    error
	calls  int
	expiry time.Time
}

func (f *fakeTokenSource) GetToken(ctx context.Context, scope string) (*Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.token != nil {
		return f.token, nil
	}
	return &Token{Value: "tok-1", ExpiresAt: f.expiry}, nil
}

func (f *fakeTokenSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestResolvePrefersExplicitAPIKey(t *testing.T) {
	secrets := &fakeSecretStore{value: "from-store"}
	tokens := &fakeTokenSource{}
	p := NewCredentialProvider(CredentialProviderConfig{
		APIKey:     "explicit-key",
		SecretName: "gateway/api-key",
		TokenScope: "gateway",
	}, secrets, tokens, zerolog.Nop())

	cred, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cred.Kind != CredentialAPIKey {
		t.Errorf("Expected kind %v, got %v", CredentialAPIKey, cred.Kind)
	}
	if cred.Value != "explicit-key" {
		t.Errorf("Expected explicit key, got %q", cred.Value)
	}
	if secrets.calls != 0 {
		t.Errorf("Expected secret store untouched, got %d calls", secrets.calls)
	}
	if tokens.callCount() != 0 {
		t.Errorf("Expected token source untouched, got %d calls", tokens.callCount())
	}
}

func TestResolveFallsBackToSecretStore(t *testing.T) {
	secrets := &fakeSecretStore{value: "from-store"}
	p := NewCredentialProvider(CredentialProviderConfig{
		SecretName: "gateway/api-key",
	}, secrets, nil, zerolog.Nop())

	cred, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cred.Value != "from-store" {
		t.Errorf("Expected secret value, got %q", cred.Value)
	}
	if cred.Kind != CredentialAPIKey {
		t.Errorf("Expected api_key credential, got %v", cred.Kind)
	}
}

func TestResolveSecretStoreFailureIsAuthenticationError(t *testing.T) {
	secrets := &fakeSecretStore{err: errors.New("access denied")}
	p := NewCredentialProvider(CredentialProviderConfig{
		SecretName: "gateway/api-key",
	}, secrets, nil, zerolog.Nop())

	_, err := p.Resolve(context.Background())
	if err == nil {
		t.Fatal("Expected error from failed secret fetch")
	}
	if !IsAuthenticationError(err) {
		t.Errorf("Expected authentication error, got %v", err)
	}
}

func TestResolveFallsBackToTokenSource(t *testing.T) {
	tokens := &fakeTokenSource{expiry: time.Now().Add(time.Hour)}
	p := NewCredentialProvider(CredentialProviderConfig{
		TokenScope: "gateway",
	}, nil, tokens, zerolog.Nop())

	cred, err := p.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cred.Kind != CredentialToken {
		t.Errorf("Expected token credential, got %v", cred.Kind)
	}
	if cred.Value != "tok-1" {
		t.Errorf("Expected token value, got %q", cred.Value)
	}
}

func TestResolveExhaustedChain(t *testing.T) {
	p := NewCredentialProvider(CredentialProviderConfig{}, nil, nil, zerolog.Nop())
	_, err := p.Resolve(context.Background())
	if !IsAuthenticationError(err) {
		t.Errorf("Expected authentication error when no strategy is configured, got %v", err)
	}
}

func TestResolveCachesCredential(t *testing.T) {
	tokens := &fakeTokenSource{expiry: time.Now().Add(time.Hour)}
	p := NewCredentialProvider(CredentialProviderConfig{}, nil, tokens, zerolog.Nop())

	ctx := context.Background()
	if _, err := p.Resolve(ctx); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := p.Resolve(ctx); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if tokens.callCount() != 1 {
		t.Errorf("Expected 1 token fetch for cached credential, got %d", tokens.callCount())
	}
}

func TestRefreshIfStaleAPIKeyIsNoop(t *testing.T) {
	p := NewCredentialProvider(CredentialProviderConfig{APIKey: "key"}, nil, nil, zerolog.Nop())
	ctx := context.Background()
	if _, err := p.Resolve(ctx); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Pretend a long time has passed.
	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	gen := p.Generation()
	p.RefreshIfStale(ctx)
	if p.Generation() != gen {
		t.Error("Expected generation unchanged for API key credential")
	}
}

func TestRefreshIfStaleRefreshesToken(t *testing.T) {
	base := time.Now()
	tokens := &fakeTokenSource{expiry: base.Add(time.Hour)}
	p := NewCredentialProvider(CredentialProviderConfig{}, nil, tokens, zerolog.Nop())
	p.now = func() time.Time { return base }

	ctx := context.Background()
	if _, err := p.Resolve(ctx); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Within the staleness threshold: no refresh.
	p.now = func() time.Time { return base.Add(30 * time.Minute) }
	p.RefreshIfStale(ctx)
	if tokens.callCount() != 1 {
		t.Errorf("Expected no refresh at 30m, got %d fetches", tokens.callCount())
	}

	// Past the threshold: exactly one refresh.
	p.now = func() time.Time { return base.Add(56 * time.Minute) }
	gen := p.Generation()
	p.RefreshIfStale(ctx)
	if tokens.callCount() != 2 {
		t.Errorf("Expected refresh at 56m, got %d fetches", tokens.callCount())
	}
	if p.Generation() == gen {
		t.Error("Expected generation bump after token refresh")
	}
}

func TestRefreshFailureIsSwallowed(t *testing.T) {
	base := time.Now()
	tokens := &fakeTokenSource{expiry: base.Add(time.Hour)}
	p := NewCredentialProvider(CredentialProviderConfig{}, nil, tokens, zerolog.Nop())
	p.now = func() time.Time { return base }

	ctx := context.Background()
	cred, err := p.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	tokens.mu.Lock()
	tokens.err = errors.New("identity service unavailable")
	tokens.mu.Unlock()

	p.now = func() time.Time { return base.Add(56 * time.Minute) }
	p.RefreshIfStale(ctx)

	// Stale token is reused.
	after, err := p.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed after swallowed refresh error: %v", err)
	}
	if after.Value != cred.Value {
		t.Errorf("Expected stale token to be reused, got %q", after.Value)
	}
}

func TestConcurrentStalenessTriggersSingleRefresh(t *testing.T) {
	base := time.Now()
	tokens := &fakeTokenSource{expiry: base.Add(time.Hour)}
	p := NewCredentialProvider(CredentialProviderConfig{}, nil, tokens, zerolog.Nop())
	p.now = func() time.Time { return base }

	ctx := context.Background()
	if _, err := p.Resolve(ctx); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// All goroutines observe the same stale clock. The first refresh
	// resets ObtainedAt to the fake now, so followers see a fresh
	// credential and do not refresh again.
	p.now = func() time.Time { return base.Add(56 * time.Minute) }

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.RefreshIfStale(ctx)
		}()
	}
	wg.Wait()

	if got := tokens.callCount(); got != 2 {
		t.Errorf("Expected exactly one refresh (2 total fetches), got %d fetches", got)
	}
}
