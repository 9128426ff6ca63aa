package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/router"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := router.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetReqID(r.Context())
	}))

	inbound := ksuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", inbound)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, inbound, seen)
	assert.Equal(t, inbound, rec.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", seen)
	_, err := ksuid.Parse(seen)
	assert.NoError(t, err)
}

func TestSecurityHeadersOnlySendHSTSOverTLS(t *testing.T) {
	h := router.SecurityHeaders(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://birds.io/health", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "https://birds.io/health", nil))
	assert.Equal(t, "max-age=2592000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}
