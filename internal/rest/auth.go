package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/httpx"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/serr"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/session"
	"github.com/NagaaSaketh/KaviosPix-BE/internal/store"
)

type ctxKey int

const callerKey ctxKey = iota

func withCaller(ctx context.Context, user store.User) context.Context {
	return context.WithValue(ctx, callerKey, user)
}

// callerFrom returns the authenticated user. Only reachable behind the
// authenticate middleware, so a missing caller is a programming error.
func callerFrom(ctx context.Context) store.User {
	user, ok := ctx.Value(callerKey).(store.User)
	if !ok {
		panic("caller missing from context")
	}
	return user
}

// protected wraps a handler with session authentication.
func (a *API) protected(h http.HandlerFunc) http.Handler {
	return a.authenticate(h)
}

// authenticate validates the session cookie, rejects revoked
// credentials, and re-fetches the account from storage. The credential
// only names the user; everything about them comes from the store on
// every request.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusUnauthorized, "authentication required"))
			return
		}

		claims, err := a.verifier.Validate(cookie.Value)
		if err != nil {
			httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusUnauthorized, "invalid session"))
			return
		}

		revoked, err := a.revoker.IsRevoked(r.Context(), claims.TokenID)
		if err != nil {
			httpx.HandleErr(w, r, fmt.Errorf("check revoked credential: %w", err))
			return
		}
		if revoked {
			httpx.HandleErr(w, r, serr.NewServiceError(nil, http.StatusUnauthorized, "invalid session"))
			return
		}

		user, err := a.store.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// deleted account with a live credential
				httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusUnauthorized, "invalid session"))
				return
			}

			httpx.HandleErr(w, r, fmt.Errorf("resolve caller: %w", err))
			return
		}

		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), user)))
	})
}
