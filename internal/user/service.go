package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/database"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrUnknownRole        = errors.New("unknown role")
	ErrConflict           = errors.New("username or email already registered")
)

// CredentialStore is the persistence the service needs. Lookups of a missing
// username return sql.ErrNoRows.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*entity.Identity, error)
	FindRolesByName(ctx context.Context, names []string) ([]entity.Role, error)
	Create(ctx context.Context, u *entity.Identity) error
}

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	Issue(subject string, authorities security.AuthoritySet) (string, error)
}

// IDSource hands out identity primary keys.
type IDSource interface {
	Next() (int64, error)
}

// UserService orchestrates authentication, identity resolution and registration.
type UserService struct {
	store  CredentialStore
	hasher PasswordHasher
	tokens TokenIssuer
	ids    IDSource
	logger *zap.SugaredLogger
}

func NewUserService(store CredentialStore, hasher PasswordHasher, tokens TokenIssuer, ids IDSource, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{store: store, hasher: hasher, tokens: tokens, ids: ids, logger: logger}
}

// Session is what a successful login or registration yields.
type Session struct {
	Username string
	Token    string
}

// RegisterInput carries a validated registration request.
type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Roles    []string
}

// Authenticate checks a username/password pair. An unknown username and a wrong
// password both yield ErrInvalidCredentials. Account flags are not checked here.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*entity.Identity, error) {
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		} // avoid user enumeration
		return nil, fmt.Errorf("find identity: %w", err)
	}
	ok, err := s.hasher.Verify(u.PasswordHash, password)
	if err != nil {
		s.logger.Errorw("stored password hash unusable", "username", username, "err", err)
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Resolve loads username from the store and computes its authorities. Missing,
// disabled, locked and expired accounts all yield ErrIdentityNotFound.
func (s *UserService) Resolve(ctx context.Context, username string) (security.Principal, error) {
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return security.Principal{}, ErrIdentityNotFound
		}
		return security.Principal{}, fmt.Errorf("find identity: %w", err)
	}
	if !u.Usable() {
		return security.Principal{}, ErrIdentityNotFound
	}
	return security.Principal{Username: u.Username, Authorities: Authorities(u)}, nil
}

// Authorities is the union of ROLE_<name> for every role of u and the name of
// every permission those roles grant.
func Authorities(u *entity.Identity) security.AuthoritySet {
	set := security.AuthoritySet{}
	for _, r := range u.Roles {
		set.Add(security.RoleAuthority(r.Name))
		for _, p := range r.Permissions {
			set.Add(p.Name)
		}
	}
	return set
}

// Login authenticates, resolves and issues a token in one step.
func (s *UserService) Login(ctx context.Context, username, password string) (Session, error) {
	if _, err := s.Authenticate(ctx, username, password); err != nil {
		return Session{}, err
	}
	return s.issueFor(ctx, username)
}

// Register creates an identity holding the requested roles and signs it in.
// Every role name must exist in the reference data or nothing is written.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	names := normalizeRoles(in.Roles)
	if len(names) == 0 {
		return Session{}, ErrUnknownRole
	}
	roles, err := s.store.FindRolesByName(ctx, names)
	if err != nil {
		return Session{}, fmt.Errorf("find roles: %w", err)
	}
	if missing := missingRoles(names, roles); len(missing) > 0 {
		return Session{}, fmt.Errorf("%w: %s", ErrUnknownRole, strings.Join(missing, ","))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}
	id, err := s.ids.Next()
	if err != nil {
		return Session{}, fmt.Errorf("allocate id: %w", err)
	}
	u := &entity.Identity{
		ID:                    id,
		Name:                  strings.TrimSpace(in.Name),
		Username:              strings.TrimSpace(in.Username),
		Email:                 strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:          hash,
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		Roles:                 roles,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			return Session{}, ErrConflict
		}
		return Session{}, fmt.Errorf("create identity: %w", err)
	}
	s.logger.Infow("identity registered", "username", u.Username, "roles", names)
	return s.issueFor(ctx, u.Username)
}

// Profile returns the stored identity for username.
func (s *UserService) Profile(ctx context.Context, username string) (*entity.Identity, error) {
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return u, nil
}

// issueFor signs a token from freshly resolved authorities, never from input.
func (s *UserService) issueFor(ctx context.Context, username string) (Session, error) {
	p, err := s.Resolve(ctx, username)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	tok, err := s.tokens.Issue(p.Username, p.Authorities)
	if err != nil {
		return Session{}, err
	}
	return Session{Username: p.Username, Token: tok}, nil
}

func normalizeRoles(in []string) []string {
	upper := cases.Upper(language.Und)
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = upper.String(strings.TrimSpace(n))
		n = strings.TrimPrefix(n, security.RolePrefix)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func missingRoles(want []string, got []entity.Role) []string {
	found := make(map[string]struct{}, len(got))
	for _, r := range got {
		found[r.Name] = struct{}{}
	}
	var missing []string
	for _, n := range want {
		if _, ok := found[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}
