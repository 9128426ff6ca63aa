// Package token issues and verifies the HS256-signed bearer tokens handed out
// at login and registration.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
)

const (
	// TTL is the fixed lifetime of every issued token.
	TTL = 30 * time.Minute
	// Leeway is the clock skew tolerated on time-based claims.
	Leeway = 2 * time.Second
	// AuthoritiesClaim carries the comma-joined authority list.
	AuthoritiesClaim = "authorities"
)

// ErrInvalidToken is the only verification failure callers ever see.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the token payload.
type Claims struct {
	Authorities string `json:"authorities"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with a shared HMAC secret. It holds no
// mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	clock  clockwork.Clock
	logger *zap.SugaredLogger
	parser *jwt.Parser
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock overrides the time source (tests use a fake clock).
func WithClock(c clockwork.Clock) Option {
	return func(cd *Codec) { cd.clock = c }
}

// WithLogger sets the logger used for rejection reasons.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(cd *Codec) { cd.logger = l }
}

// NewCodec builds a Codec pinned to issuer. An empty secret or issuer is a
// configuration error.
func NewCodec(secret, issuer string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret is empty")
	}
	if issuer == "" {
		return nil, errors.New("token: issuer is empty")
	}
	c := &Codec{
		secret: []byte(secret),
		issuer: issuer,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithLeeway(Leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.clock.Now),
	)
	return c, nil
}

// Issuer returns the issuer name stamped into tokens.
func (c *Codec) Issuer() string { return c.issuer }

// Issue signs a token for subject carrying authorities.
func (c *Codec) Issue(subject string, authorities security.AuthoritySet) (string, error) {
	if subject == "" {
		return "", errors.New("token: empty subject")
	}
	now := c.clock.Now()
	claims := Claims{
		Authorities: authorities.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and time claims. Every failure collapses to
// ErrInvalidToken; the underlying reason is only logged.
func (c *Codec) Verify(raw string) (security.Claims, error) {
	var claims Claims
	tok, err := c.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		c.logger.Debugw("token verification failed", "reason", err)
		return security.Claims{}, ErrInvalidToken
	}
	if !tok.Valid || claims.Subject == "" {
		c.logger.Debugw("token verification failed", "reason", "missing subject")
		return security.Claims{}, ErrInvalidToken
	}
	out := security.Claims{
		Subject:     claims.Subject,
		Authorities: security.ParseAuthorities(claims.Authorities),
		ID:          claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
