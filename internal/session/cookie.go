package session

import (
	"net/http"
	"time"
)

// CookieName matches the credential cookie the frontend already expects.
const CookieName = "token"

// SetCredentialCookie issues the session credential to the client.
// HttpOnly and SameSite=Lax always; Secure only outside development so
// local HTTP testing keeps working.
func SetCredentialCookie(w http.ResponseWriter, credential string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    credential,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCredentialCookie removes the session credential from the client.
func ClearCredentialCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
