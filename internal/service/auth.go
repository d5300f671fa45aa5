package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/oauth"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/serr"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// authStore is the slice of storage the auth flow needs.
type authStore interface {
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateUser(ctx context.Context, r store.CreateUserRequest) (int64, error)
	LinkGoogleID(ctx context.Context, userID int64, googleID string) error
}

// authenticator defines the interface for OAuth authentication flow management
type authenticator interface {
	LoginURL(env oauth.Env, provider string) (string, error)
	Exchange(ctx context.Context, env oauth.Env, provider, code, state string) (oauth.Profile, error)
}

// credentialIssuer mints signed session credentials.
type credentialIssuer interface {
	Issue(userID int64) (string, error)
}

// Auth links external identities to local accounts and issues session
// credentials for them.
type Auth struct {
	auth        authenticator
	store       authStore
	credentials credentialIssuer
}

// AuthOption defines a functional option for configuring the Auth service
type AuthOption func(*Auth) *Auth

func WithAuthenticator(a authenticator) AuthOption {
	return func(s *Auth) *Auth {
		s.auth = a
		return s
	}
}

func WithAuthStore(st authStore) AuthOption {
	return func(s *Auth) *Auth {
		s.store = st
		return s
	}
}

func WithCredentialIssuer(iss credentialIssuer) AuthOption {
	return func(s *Auth) *Auth {
		s.credentials = iss
		return s
	}
}

// NewAuth creates a new Auth service with the provided options
func NewAuth(opts ...AuthOption) *Auth {
	s := &Auth{}
	for _, opt := range opts {
		s = opt(s)
	}

	if s.auth == nil {
		panic("oauth authenticator is required")
	}

	if s.store == nil {
		panic("store is required")
	}

	if s.credentials == nil {
		panic("credential issuer is required")
	}

	return s
}

// LoginURL generates a login URL for the specified provider
func (s *Auth) LoginURL(env oauth.Env, provider string) (string, error) {
	url, err := s.auth.LoginURL(env, provider)
	if err != nil {
		if errors.Is(err, oauth.ErrProviderNotFound) {
			sErr := serr.NewServiceError(err, http.StatusNotFound, "oauth provider not found")
			sErr.Env["provider"] = provider
			return "", sErr
		}

		return "", fmt.Errorf("login url: %w", err)
	}

	return url, nil
}

type CallbackRequest struct {
	Provider string
	Code     string
	State    string
}

type CallbackResponse struct {
	Credential string
	NewUser    bool
}

// HandleCallback completes the OAuth flow: the code is exchanged for a
// verified profile, the profile is linked to a local account, and a
// session credential is issued. NewUser reports whether an account was
// created during the call.
func (s *Auth) HandleCallback(ctx context.Context, env oauth.Env, r CallbackRequest) (CallbackResponse, error) {
	profile, err := s.auth.Exchange(ctx, env, r.Provider, r.Code, r.State)
	if err != nil {
		if errors.Is(err, oauth.ErrProviderNotFound) {
			sErr := serr.NewServiceError(err, http.StatusNotFound, "oauth provider not found")
			sErr.Env["provider"] = r.Provider
			return CallbackResponse{}, sErr
		}

		if errors.Is(err, oauth.ErrAuthFailed) {
			return CallbackResponse{}, serr.NewServiceError(err, http.StatusUnauthorized, "authentication failed")
		}

		return CallbackResponse{}, fmt.Errorf("exchange: %w", err)
	}

	if profile.VerifiedEmail() == "" {
		return CallbackResponse{}, serr.NewServiceError(oauth.ErrAuthFailed, http.StatusUnauthorized, "authentication failed")
	}

	user, created, err := s.resolveAccount(ctx, profile)
	if err != nil {
		return CallbackResponse{}, fmt.Errorf("resolve account: %w", err)
	}

	cred, err := s.credentials.Issue(user.ID)
	if err != nil {
		return CallbackResponse{}, fmt.Errorf("issue credential: %w", err)
	}

	return CallbackResponse{
		Credential: cred,
		NewUser:    created,
	}, nil
}

// Profile re-resolves the account from storage. Claims name a user but
// never stand in for the stored record.
func (s *Auth) Profile(ctx context.Context, userID int64) (store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, serr.NewServiceError(err, http.StatusNotFound, "user not found")
		}

		return store.User{}, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// resolveAccount maps a verified external profile onto a local account:
// an account already linked to the external id wins, an existing account
// with the same email gets linked, and otherwise a new account is
// created.
func (s *Auth) resolveAccount(ctx context.Context, profile oauth.Profile) (store.User, bool, error) {
	user, err := s.store.GetUserByGoogleID(ctx, profile.ID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, false, fmt.Errorf("get user by external id: %w", err)
	}

	email := profile.VerifiedEmail()
	user, err = s.store.GetUserByEmail(ctx, email)
	if err == nil {
		if err := s.store.LinkGoogleID(ctx, user.ID, profile.ID); err != nil {
			return store.User{}, false, fmt.Errorf("link external id: %w", err)
		}

		user.GoogleID = profile.ID
		return user, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, false, fmt.Errorf("get user by email: %w", err)
	}

	hash, err := placeholderHash()
	if err != nil {
		return store.User{}, false, err
	}

	id, err := s.store.CreateUser(ctx, store.CreateUserRequest{
		GoogleID:     profile.ID,
		Email:        email,
		PasswordHash: hash,
		Name:         profile.Name,
		Picture:      profile.Picture,
	})
	if err != nil {
		return store.User{}, false, fmt.Errorf("create user: %w", err)
	}

	return store.User{
		ID:       id,
		GoogleID: profile.ID,
		Email:    email,
		Name:     profile.Name,
		Picture:  profile.Picture,
	}, true, nil
}

// placeholderHash fills the password column for accounts that only ever
// authenticate externally. Nothing can log in with it.
func placeholderHash() (string, error) {
	b := make([]byte, 32)

	// rand.Read never returns an error
	_, _ = rand.Read(b)

	hash, err := bcrypt.GenerateFromPassword([]byte(base64.RawURLEncoding.EncodeToString(b)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash placeholder password: %w", err)
	}

	return string(hash), nil
}
