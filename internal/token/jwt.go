package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired means the credential was well-formed but past its validity window.
	ErrExpired = errors.New("credential expired")
	// ErrInvalid covers bad signatures and malformed payloads.
	ErrInvalid = errors.New("credential invalid")
)

// Claims is what a verified credential asserts. The user it names must
// still be re-resolved from storage by the caller; privileges can change
// between issuance and use.
type Claims struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

type Issuer struct {
	secret secretProvider
	issuer string
	ttl    time.Duration
}

type IssuerConfig struct {
	Secret secretProvider
	Issuer string
	TTL    time.Duration
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	return &Issuer{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
	}
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a signed, time-bounded credential for the given user.
func (i *Issuer) Issue(userID int64) (string, error) {
	now := time.Now()
	tk, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}).SignedString(i.secret.Get())

	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}

	return tk, nil
}

// Validate checks signature and expiry and returns the embedded claims.
func (i *Issuer) Validate(raw string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &rc, func(t *jwt.Token) (any, error) {
		return i.secret.Get(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}

		return Claims{}, ErrInvalid
	}

	userID, err := strconv.ParseInt(rc.Subject, 10, 64)
	if err != nil {
		return Claims{}, ErrInvalid
	}

	var expiresAt time.Time
	if rc.ExpiresAt != nil {
		expiresAt = rc.ExpiresAt.Time
	}

	return Claims{
		UserID:    userID,
		TokenID:   rc.ID,
		ExpiresAt: expiresAt,
	}, nil
}
