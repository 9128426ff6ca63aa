package security

import (
	"context"
	"time"
)

// Principal is a resolved identity and the authorities it holds.
type Principal struct {
	Username    string
	Authorities AuthoritySet
}

// Source records where a request's authorities came from.
type Source int

const (
	// SourceAnonymous means no usable bearer token was presented.
	SourceAnonymous Source = iota
	// SourceStore means authorities were recomputed from the credential store.
	SourceStore
	// SourceToken means the store could not resolve the subject and the
	// token's embedded authority claim was used verbatim.
	SourceToken
)

func (s Source) String() string {
	switch s {
	case SourceStore:
		return "store"
	case SourceToken:
		return "token"
	default:
		return "anonymous"
	}
}

// Authentication is the request-scoped security context.
type Authentication struct {
	Principal
	Source Source
}

// Anonymous returns a context holding no authorities.
func Anonymous() Authentication {
	return Authentication{Principal: Principal{Authorities: AuthoritySet{}}, Source: SourceAnonymous}
}

// Authenticated reports whether a principal was established.
func (a Authentication) Authenticated() bool {
	return a.Source != SourceAnonymous && a.Username != ""
}

// Claims is what a verified token yields.
type Claims struct {
	Subject     string
	Authorities AuthoritySet
	ID          string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

type authenticationKey struct{}

// WithAuthentication stores the security context for the rest of the request.
func WithAuthentication(ctx context.Context, a Authentication) context.Context {
	return context.WithValue(ctx, authenticationKey{}, a)
}

// AuthenticationFrom returns the request's security context, anonymous when unset.
func AuthenticationFrom(ctx context.Context) Authentication {
	a, ok := ctx.Value(authenticationKey{}).(Authentication)
	if !ok {
		return Anonymous()
	}
	if a.Authorities == nil {
		a.Authorities = AuthoritySet{}
	}
	return a
}
