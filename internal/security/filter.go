package security

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// TokenVerifier checks a raw bearer token. Any failure is a single opaque error.
type TokenVerifier interface {
	Verify(raw string) (Claims, error)
}

// IdentityResolver rebuilds a principal from the credential store.
type IdentityResolver interface {
	Resolve(ctx context.Context, username string) (Principal, error)
}

// Observer receives auth outcomes for metrics. Implementations must be safe
// for concurrent use.
type Observer interface {
	TokenVerification(result string)
	IdentityFallback()
	PolicyDecision(decision Decision)
}

type noopObserver struct{}

func (noopObserver) TokenVerification(string) {}
func (noopObserver) IdentityFallback()        {}
func (noopObserver) PolicyDecision(Decision)  {}

// Filter establishes the security context of every request from its bearer
// token. It never rejects a request itself; denial is left to the policy table.
type Filter struct {
	tokens     TokenVerifier
	identities IdentityResolver
	logger     *zap.SugaredLogger
	observer   Observer
}

// NewFilter constructs a Filter. logger and observer may be nil.
func NewFilter(tokens TokenVerifier, identities IdentityResolver, logger *zap.SugaredLogger, observer Observer) *Filter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Filter{tokens: tokens, identities: identities, logger: logger, observer: observer}
}

// Middleware attaches the resolved Authentication to the request context.
func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := f.Authenticate(r)
		next.ServeHTTP(w, r.WithContext(WithAuthentication(r.Context(), auth)))
	})
}

// Authenticate runs the single-pass token check for r.
func (f *Filter) Authenticate(r *http.Request) Authentication {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		f.observer.TokenVerification("absent")
		return Anonymous()
	}

	claims, err := f.tokens.Verify(raw)
	if err != nil {
		f.observer.TokenVerification("invalid")
		f.logger.Debugw("bearer token rejected", "path", r.URL.Path, "err", err)
		return Anonymous()
	}
	f.observer.TokenVerification("valid")

	p, err := f.identities.Resolve(r.Context(), claims.Subject)
	if err == nil {
		return Authentication{Principal: p, Source: SourceStore}
	}

	// store could not vouch for the subject: trust the signed claim as-is
	f.observer.IdentityFallback()
	f.logger.Warnw("identity resolution failed, using token authorities",
		"subject", claims.Subject,
		"jti", claims.ID,
		"err", err,
	)
	authorities := claims.Authorities
	if authorities == nil {
		authorities = AuthoritySet{}
	}
	return Authentication{
		Principal: Principal{Username: claims.Subject, Authorities: authorities},
		Source:    SourceToken,
	}
}

func bearerToken(header string) (string, bool) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
