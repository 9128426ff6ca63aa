package user_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/token"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/user"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/user/entity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memStore struct {
	mu      sync.Mutex
	users   map[string]*entity.Identity
	roles   map[string]entity.Role
	creates int
	findErr error
}

func newMemStore() *memStore {
	s := &memStore{users: map[string]*entity.Identity{}, roles: map[string]entity.Role{}}
	var id int64
	for _, name := range entity.RoleNames() {
		id++
		role := entity.Role{ID: id, Name: name}
		for _, p := range entity.Catalog[name] {
			role.Permissions = append(role.Permissions, entity.Permission{Name: p})
		}
		s.roles[name] = role
	}
	return s
}

func (s *memStore) FindByUsername(_ context.Context, username string) (*entity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindRolesByName(_ context.Context, names []string) ([]entity.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Role
	for _, n := range names {
		if r, ok := s.roles[n]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Create(_ context.Context, u *entity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if _, ok := s.users[u.Username]; ok {
		return &pq.Error{Code: "23505"}
	}
	cp := *u
	s.users[u.Username] = &cp
	return nil
}

func (s *memStore) put(t *testing.T, username, password string, roles ...string) *entity.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &entity.Identity{
		ID:                    int64(len(s.users) + 100),
		Username:              username,
		Email:                 username,
		PasswordHash:          string(hash),
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, s.roles[r])
	}
	s.users[username] = u
	return u
}

type seqIDs struct{ n int64 }

func (g *seqIDs) Next() (int64, error) { g.n++; return g.n, nil }

func newService(t *testing.T, store *memStore) (*user.UserService, *token.Codec) {
	t.Helper()
	codec, err := token.NewCodec(testSecret, "birds-test")
	require.NoError(t, err)
	svc := user.NewUserService(store, user.BcryptHasher{Cost: bcrypt.MinCost}, codec, &seqIDs{}, nil)
	return svc, codec
}

func TestAuthenticate(t *testing.T) {
	store := newMemStore()
	store.put(t, "ana@birds.io", "s3cret", entity.RoleUser)
	svc, _ := newService(t, store)
	ctx := context.Background()

	u, err := svc.Authenticate(ctx, "ana@birds.io", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ana@birds.io", u.Username)

	_, err = svc.Authenticate(ctx, "ana@birds.io", "wrong")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@birds.io", "s3cret")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestAuthenticateIgnoresAccountFlags(t *testing.T) {
	store := newMemStore()
	u := store.put(t, "locked@birds.io", "pw", entity.RoleUser)
	u.AccountNonLocked = false
	svc, _ := newService(t, store)

	_, err := svc.Authenticate(context.Background(), "locked@birds.io", "pw")
	assert.NoError(t, err)
}

func TestAuthenticateMalformedHashIsInternal(t *testing.T) {
	store := newMemStore()
	u := store.put(t, "odd@birds.io", "pw", entity.RoleUser)
	u.PasswordHash = "not-a-bcrypt-hash"
	svc, _ := newService(t, store)

	_, err := svc.Authenticate(context.Background(), "odd@birds.io", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, user.ErrMalformedHash)
	assert.NotErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestResolveAuthorities(t *testing.T) {
	store := newMemStore()
	store.put(t, "dev@birds.io", "pw", entity.RoleDeveloper, entity.RoleInvited)
	svc, _ := newService(t, store)

	p, err := svc.Resolve(context.Background(), "dev@birds.io")
	require.NoError(t, err)
	want := security.NewAuthoritySet(
		"ROLE_DEVELOPER", "ROLE_INVITED",
		"CREATE", "READ", "UPDATE", "DELETE", "REFACTOR", "INVITED",
	)
	assert.True(t, want.Equal(p.Authorities), "got %s", p.Authorities)
}

func TestResolveUnusableAccountsAreNotFound(t *testing.T) {
	cases := map[string]func(*entity.Identity){
		"disabled":            func(u *entity.Identity) { u.Enabled = false },
		"locked":              func(u *entity.Identity) { u.AccountNonLocked = false },
		"account expired":     func(u *entity.Identity) { u.AccountNonExpired = false },
		"credentials expired": func(u *entity.Identity) { u.CredentialsNonExpired = false },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			mutate(store.put(t, "x@birds.io", "pw", entity.RoleAdmin))
			svc, _ := newService(t, store)

			_, err := svc.Resolve(context.Background(), "x@birds.io")
			assert.ErrorIs(t, err, user.ErrIdentityNotFound)
		})
	}
}

func TestResolveStoreFailureIsNotNotFound(t *testing.T) {
	store := newMemStore()
	store.findErr = errors.New("connection refused")
	svc, _ := newService(t, store)

	_, err := svc.Resolve(context.Background(), "x@birds.io")
	require.Error(t, err)
	assert.NotErrorIs(t, err, user.ErrIdentityNotFound)
}

func TestLoginIssuesTokenWithResolvedAuthorities(t *testing.T) {
	store := newMemStore()
	store.put(t, "ana@birds.io", "s3cret", entity.RoleUser)
	svc, codec := newService(t, store)

	sess, err := svc.Login(context.Background(), "ana@birds.io", "s3cret")
	require.NoError(t, err)
	claims, err := codec.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana@birds.io", claims.Subject)
	assert.True(t, security.NewAuthoritySet("ROLE_USER", "READ").Equal(claims.Authorities))
}

func TestLoginWrongPasswordIssuesNothing(t *testing.T) {
	store := newMemStore()
	store.put(t, "ana@birds.io", "s3cret", entity.RoleUser)
	svc, _ := newService(t, store)

	sess, err := svc.Login(context.Background(), "ana@birds.io", "nope")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	assert.Empty(t, sess.Token)
}

func TestLoginDisabledAccountLooksLikeBadCredentials(t *testing.T) {
	store := newMemStore()
	store.put(t, "ana@birds.io", "s3cret", entity.RoleUser).Enabled = false
	svc, _ := newService(t, store)

	_, err := svc.Login(context.Background(), "ana@birds.io", "s3cret")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestRegisterAdmin(t *testing.T) {
	store := newMemStore()
	svc, codec := newService(t, store)

	sess, err := svc.Register(context.Background(), user.RegisterInput{
		Name:     "Ana",
		Username: "ana@birds.io",
		Email:    "Ana@Birds.io",
		Password: "s3cret",
		Roles:    []string{"admin"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	claims, err := codec.Verify(sess.Token)
	require.NoError(t, err)
	assert.True(t, claims.Authorities.Has("ROLE_ADMIN"))
	assert.True(t, claims.Authorities.Has("CREATE"))

	stored := store.users["ana@birds.io"]
	require.NotNil(t, stored)
	assert.Equal(t, "ana@birds.io", stored.Email)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.True(t, stored.Usable())
}

func TestRegisterUnknownRolePersistsNothing(t *testing.T) {
	for _, roles := range [][]string{{"GHOST"}, {"ADMIN", "GHOST"}} {
		store := newMemStore()
		svc, _ := newService(t, store)

		_, err := svc.Register(context.Background(), user.RegisterInput{
			Name: "G", Username: "g@birds.io", Email: "g@birds.io", Password: "pw", Roles: roles,
		})
		assert.ErrorIs(t, err, user.ErrUnknownRole)
		assert.Zero(t, store.creates)
		assert.Empty(t, store.users)
	}
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	store := newMemStore()
	store.put(t, "ana@birds.io", "pw", entity.RoleUser)
	svc, _ := newService(t, store)

	_, err := svc.Register(context.Background(), user.RegisterInput{
		Name: "Ana", Username: "ana@birds.io", Email: "ana2@birds.io", Password: "pw", Roles: []string{"USER"},
	})
	assert.ErrorIs(t, err, user.ErrConflict)
}

func TestAuthoritiesUnion(t *testing.T) {
	u := &entity.Identity{Roles: []entity.Role{
		{Name: "ADMIN", Permissions: []entity.Permission{{Name: "READ"}, {Name: "CREATE"}}},
		{Name: "USER", Permissions: []entity.Permission{{Name: "READ"}}},
	}}
	got := user.Authorities(u)
	assert.Equal(t, []string{"CREATE", "READ", "ROLE_ADMIN", "ROLE_USER"}, got.Slice())
}
