package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/user/entity"
)

// UserRepo is the PostgreSQL credential store.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTables creates the identity tables if missing and seeds the
// role/permission reference data. Safe to run on every start.
func (r *UserRepo) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS permissions (
  id BIGSERIAL PRIMARY KEY,
  name VARCHAR(50) NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS roles (
  id BIGSERIAL PRIMARY KEY,
  role_name VARCHAR(20) NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS roles_permissions (
  role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
  permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
  PRIMARY KEY (role_id, permission_id)
);
CREATE TABLE IF NOT EXISTS users (
  id BIGINT PRIMARY KEY,
  name VARCHAR(30) NOT NULL,
  username VARCHAR(30) NOT NULL UNIQUE,
  email VARCHAR(100) NOT NULL UNIQUE,
  password TEXT NOT NULL,
  is_enabled BOOLEAN NOT NULL DEFAULT true,
  account_no_expired BOOLEAN NOT NULL DEFAULT true,
  account_no_locked BOOLEAN NOT NULL DEFAULT true,
  credential_no_expired BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS users_roles (
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  role_id BIGINT NOT NULL REFERENCES roles(id),
  PRIMARY KEY (user_id, role_id)
);
`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	return r.seed(ctx)
}

func (r *UserRepo) seed(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range entity.PermissionNames() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO permissions (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("seed permission %s: %w", name, err)
		}
	}
	for _, role := range entity.RoleNames() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO roles (role_name) VALUES ($1) ON CONFLICT (role_name) DO NOTHING`, role); err != nil {
			return fmt.Errorf("seed role %s: %w", role, err)
		}
		for _, perm := range entity.Catalog[role] {
			const q = `INSERT INTO roles_permissions (role_id, permission_id)
				SELECT r.id, p.id FROM roles r, permissions p WHERE r.role_name = $1 AND p.name = $2
				ON CONFLICT DO NOTHING`
			if _, err := tx.ExecContext(ctx, q, role, perm); err != nil {
				return fmt.Errorf("seed grant %s/%s: %w", role, perm, err)
			}
		}
	}
	return tx.Commit()
}

// FindByUsername loads an identity with its roles and permissions, or sql.ErrNoRows.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*entity.Identity, error) {
	const q = `SELECT id, name, username, email, password, is_enabled, account_no_expired,
		account_no_locked, credential_no_expired, created_at, updated_at
	  FROM users WHERE username=$1`
	var u entity.Identity
	if err := r.db.GetContext(ctx, &u, q, username); err != nil {
		return nil, err
	}
	const rq = `SELECT r.id AS role_id, r.role_name, p.id AS permission_id, p.name AS permission_name
	  FROM users_roles ur
	  JOIN roles r ON r.id = ur.role_id
	  LEFT JOIN roles_permissions rp ON rp.role_id = r.id
	  LEFT JOIN permissions p ON p.id = rp.permission_id
	  WHERE ur.user_id = $1
	  ORDER BY r.role_name, p.name`
	var rows []grantRow
	if err := r.db.SelectContext(ctx, &rows, rq, u.ID); err != nil {
		return nil, err
	}
	u.Roles = foldRoles(rows)
	return &u, nil
}

// FindRolesByName returns the roles among names that exist, with permissions.
func (r *UserRepo) FindRolesByName(ctx context.Context, names []string) ([]entity.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT r.id AS role_id, r.role_name, p.id AS permission_id, p.name AS permission_name
	  FROM roles r
	  LEFT JOIN roles_permissions rp ON rp.role_id = r.id
	  LEFT JOIN permissions p ON p.id = rp.permission_id
	  WHERE r.role_name IN (?)
	  ORDER BY r.role_name, p.name`, names)
	if err != nil {
		return nil, err
	}
	var rows []grantRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return foldRoles(rows), nil
}

// Create inserts the identity and its role links in one transaction.
// u.ID must already be assigned.
func (r *UserRepo) Create(ctx context.Context, u *entity.Identity) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO users (id, name, username, email, password, is_enabled, account_no_expired, account_no_locked, credential_no_expired)
		VALUES (:id, :name, :username, :email, :password, :is_enabled, :account_no_expired, :account_no_locked, :credential_no_expired)
		RETURNING created_at`
	stmt, err := tx.PrepareNamedContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := stmt.GetContext(ctx, &u.CreatedAt, u); err != nil {
		return err
	}
	for _, role := range u.Roles {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users_roles (user_id, role_id) VALUES ($1, $2)`, u.ID, role.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type grantRow struct {
	RoleID         int64          `db:"role_id"`
	RoleName       string         `db:"role_name"`
	PermissionID   sql.NullInt64  `db:"permission_id"`
	PermissionName sql.NullString `db:"permission_name"`
}

// foldRoles groups ordered join rows into roles, keeping first-seen order.
func foldRoles(rows []grantRow) []entity.Role {
	var roles []entity.Role
	index := make(map[int64]int)
	for _, row := range rows {
		i, ok := index[row.RoleID]
		if !ok {
			roles = append(roles, entity.Role{ID: row.RoleID, Name: row.RoleName})
			i = len(roles) - 1
			index[row.RoleID] = i
		}
		if row.PermissionID.Valid {
			roles[i].Permissions = append(roles[i].Permissions, entity.Permission{
				ID:   row.PermissionID.Int64,
				Name: row.PermissionName.String,
			})
		}
	}
	return roles
}
