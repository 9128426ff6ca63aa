package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/reference/entity"
)

// Tables served by EntryRepo.
const (
	Families = "families"
	Habitats = "habitats"
)

// EntryRepo persists Entry rows in one fixed table.
type EntryRepo struct {
	db    *sqlx.DB
	table string
}

// NewEntryRepo binds the repo to table, which must be Families or Habitats.
func NewEntryRepo(db *sqlx.DB, table string) (*EntryRepo, error) {
	if table != Families && table != Habitats {
		return nil, fmt.Errorf("unsupported table %q", table)
	}
	return &EntryRepo{db: db, table: table}, nil
}

func (r *EntryRepo) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+r.table+` (
  id BIGSERIAL PRIMARY KEY,
  name VARCHAR(50) NOT NULL,
  description VARCHAR(255) NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ
)`)
	return err
}

func (r *EntryRepo) Create(ctx context.Context, e *entity.Entry) error {
	q := `INSERT INTO ` + r.table + ` (name, description) VALUES ($1, $2) RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, q, e.Name, e.Description).Scan(&e.ID, &e.CreatedAt)
}

// Update overwrites name and description; sql.ErrNoRows when id is absent.
func (r *EntryRepo) Update(ctx context.Context, e *entity.Entry) error {
	q := `UPDATE ` + r.table + ` SET name=$1, description=$2, updated_at=NOW() WHERE id=$3
		RETURNING created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, e.Name, e.Description, e.ID).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *EntryRepo) List(ctx context.Context) ([]entity.Entry, error) {
	var out []entity.Entry
	err := r.db.SelectContext(ctx, &out, `SELECT id, name, description, created_at, updated_at FROM `+r.table+` ORDER BY id`)
	return out, err
}

func (r *EntryRepo) Get(ctx context.Context, id int64) (*entity.Entry, error) {
	var e entity.Entry
	if err := r.db.GetContext(ctx, &e, `SELECT id, name, description, created_at, updated_at FROM `+r.table+` WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByName matches case-insensitively and returns the oldest match.
func (r *EntryRepo) GetByName(ctx context.Context, name string) (*entity.Entry, error) {
	var e entity.Entry
	q := `SELECT id, name, description, created_at, updated_at FROM ` + r.table + ` WHERE lower(name)=lower($1) ORDER BY id LIMIT 1`
	if err := r.db.GetContext(ctx, &e, q, name); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
