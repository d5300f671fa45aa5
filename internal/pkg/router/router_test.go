package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleFunc(t *testing.T) {
	rt := router.New()
	rt.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareOrder(t *testing.T) {
	var calls []string
	mw := func(name string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	rt := router.New()
	rt.Use(mw("first"), mw("second"))
	rt.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "handler")
	})

	rt.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	require.Equal(t, []string{"first", "second", "handler"}, calls)
}

func TestSubRouter(t *testing.T) {
	rt := router.New()
	sub := rt.SubRouter("/api")
	sub.HandleFunc("GET /albums", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest("GET", "/api/albums", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest("GET", "/albums", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubRouter_InheritsMiddleware(t *testing.T) {
	var hits int
	count := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			next.ServeHTTP(w, r)
		})
	}

	rt := router.New()
	rt.Use(count)
	sub := rt.SubRouter("/api")
	sub.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {})

	rt.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/ping", nil))

	// parent chain and inherited child chain both run
	assert.Equal(t, 2, hits)
}
