package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

var (
	ErrProviderConflict = errors.New("provider already exists")
	ErrProviderNotFound = errors.New("provider not found")

	// ErrAuthFailed is terminal for the request: authorization codes are
	// single-use, so there is no retry.
	ErrAuthFailed = errors.New("auth failed")
)

// Profile is the normalized identity an external provider asserts.
// Facts only, no decisions.
type Profile struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Nonce         string
}

func (p *Profile) VerifiedEmail() string {
	if p.EmailVerified {
		return p.Email
	}
	return ""
}

// Env stores short-lived per-login values (state, nonce) between the
// redirect to the provider and the callback.
type Env interface {
	Save(key, val string) error
	Load(key string) (string, error)
}

type identityProvider interface {
	LoginURL(state, nonce string) (string, error)
	Exchange(ctx context.Context, code string) (Profile, error)
}

// Authenticator drives the authorization-code flow against registered
// providers. Every external exchange is bounded by a timeout.
type Authenticator struct {
	providers map[string]identityProvider
	timeout   time.Duration
	mu        sync.RWMutex
}

func NewAuthenticator(exchangeTimeout time.Duration) *Authenticator {
	return &Authenticator{
		providers: make(map[string]identityProvider),
		timeout:   exchangeTimeout,
	}
}

func (a *Authenticator) Use(name string, p identityProvider) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.providers[name]; ok {
		return ErrProviderConflict
	}

	a.providers[name] = p
	return nil
}

func (a *Authenticator) LoginURL(env Env, provider string) (string, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return "", fmt.Errorf("get provider: %w", err)
	}

	state := randString(32)
	nonce := randString(32)

	if err = env.Save("state", state); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}
	if err = env.Save("nonce", nonce); err != nil {
		return "", fmt.Errorf("save nonce: %w", err)
	}

	url, err := p.LoginURL(state, nonce)
	if err != nil {
		return "", fmt.Errorf("get login url: %w", err)
	}

	return url, nil
}

// Exchange trades the authorization code for a verified external profile.
// State and nonce must match what LoginURL stored for this caller.
func (a *Authenticator) Exchange(ctx context.Context, env Env, provider, code, state string) (Profile, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return Profile{}, fmt.Errorf("get provider: %w", err)
	}

	saved, err := env.Load("state")
	if err != nil || saved != state || state == "" {
		return Profile{}, ErrAuthFailed
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	profile, err := p.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Profile{}, ErrAuthFailed
		}

		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			if rerr.Response.StatusCode == http.StatusBadRequest || rerr.Response.StatusCode == http.StatusUnauthorized {
				return Profile{}, ErrAuthFailed
			}
		}

		return Profile{}, fmt.Errorf("exchange: %w", err)
	}

	nonce, err := env.Load("nonce")
	if err != nil || profile.Nonce != nonce {
		return Profile{}, ErrAuthFailed
	}

	return profile, nil
}

func (a *Authenticator) getProvider(name string) (identityProvider, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := a.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	return p, nil
}

func randString(size int) string {
	b := make([]byte, size)

	// rand.Read never returns an error
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
