package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/observability"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := observability.NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/birds/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/birds/"+id, nil))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{code="418",route="/birds/{id}"} 2`)
}

func TestAuthCounters(t *testing.T) {
	m := observability.NewMetrics()
	m.Login("success")
	m.Login("invalid_credentials")
	m.Login("invalid_credentials")
	m.TokenVerification("valid")
	m.TokenVerification("absent")
	m.IdentityFallback()
	m.PolicyDecision(security.Deny)
	m.PolicyDecision(security.Allow)
	m.PolicyDecision(security.Deny)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, line := range []string{
		`auth_logins_total{outcome="success"} 1`,
		`auth_logins_total{outcome="invalid_credentials"} 2`,
		`auth_token_verifications_total{result="valid"} 1`,
		`auth_token_verifications_total{result="absent"} 1`,
		`auth_identity_fallbacks_total 1`,
		`auth_policy_decisions_total{decision="allow"} 1`,
		`auth_policy_decisions_total{decision="deny"} 2`,
	} {
		assert.Contains(t, body, line)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *observability.Metrics
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotNil(t, m.Middleware(next))
	assert.NotPanics(t, func() {
		m.Login("success")
		m.TokenVerification("valid")
		m.IdentityFallback()
	})
}
