package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/sighting/entity"
)

// Column restricts List filters to the foreign keys of a sighting.
type Column string

const (
	ByBird    Column = "bird_id"
	ByUser    Column = "user_id"
	ByCountry Column = "country_id"
	ByHabitat Column = "habitat_id"
)

// Filter narrows List. The zero value lists everything.
type Filter struct {
	Column Column
	ID     int64
	From   *time.Time
	To     *time.Time
}

type SightingRepo struct {
	db *sqlx.DB
}

func NewSightingRepo(db *sqlx.DB) *SightingRepo { return &SightingRepo{db: db} }

// EnsureTables requires users, birds and habitats to exist already.
func (r *SightingRepo) EnsureTables(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS countries (
  id BIGSERIAL PRIMARY KEY,
  name VARCHAR(50) NOT NULL,
  iso_code VARCHAR(3) NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS sightings (
  id BIGSERIAL PRIMARY KEY,
  latitude DOUBLE PRECISION NOT NULL,
  longitude DOUBLE PRECISION NOT NULL,
  sighted_at TIMESTAMPTZ NOT NULL,
  notes VARCHAR(255) NOT NULL DEFAULT '',
  bird_id BIGINT NOT NULL REFERENCES birds(id),
  user_id BIGINT NOT NULL REFERENCES users(id),
  habitat_id BIGINT NOT NULL REFERENCES habitats(id),
  country_id BIGINT NOT NULL REFERENCES countries(id),
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS sightings_sighted_at_idx ON sightings (sighted_at);`)
	return err
}

const columns = `id, latitude, longitude, sighted_at, notes, bird_id, user_id, habitat_id, country_id, created_at`

func (r *SightingRepo) Create(ctx context.Context, s *entity.Sighting) error {
	const q = `INSERT INTO sightings (latitude, longitude, sighted_at, notes, bird_id, user_id, habitat_id, country_id)
		VALUES (:latitude, :longitude, :sighted_at, :notes, :bird_id, :user_id, :habitat_id, :country_id)
		RETURNING id, created_at`
	stmt, err := r.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.QueryRowxContext(ctx, s).Scan(&s.ID, &s.CreatedAt)
}

// Update rewrites everything but the owner; sql.ErrNoRows when absent.
func (r *SightingRepo) Update(ctx context.Context, s *entity.Sighting) error {
	const q = `UPDATE sightings SET latitude=$1, longitude=$2, sighted_at=$3, notes=$4,
		bird_id=$5, habitat_id=$6, country_id=$7 WHERE id=$8
		RETURNING user_id, created_at`
	return r.db.QueryRowxContext(ctx, q, s.Latitude, s.Longitude, s.SightedAt, s.Notes,
		s.BirdID, s.HabitatID, s.CountryID, s.ID).Scan(&s.UserID, &s.CreatedAt)
}

func (r *SightingRepo) Get(ctx context.Context, id int64) (*entity.Sighting, error) {
	var s entity.Sighting
	if err := r.db.GetContext(ctx, &s, `SELECT `+columns+` FROM sightings WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SightingRepo) List(ctx context.Context, f Filter) ([]entity.Sighting, error) {
	q := `SELECT ` + columns + ` FROM sightings WHERE 1=1`
	var args []any
	switch f.Column {
	case "":
	case ByBird, ByUser, ByCountry, ByHabitat:
		args = append(args, f.ID)
		q += fmt.Sprintf(" AND %s=$%d", f.Column, len(args))
	default:
		return nil, fmt.Errorf("unsupported filter column %q", f.Column)
	}
	if f.From != nil {
		args = append(args, *f.From)
		q += fmt.Sprintf(" AND sighted_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		q += fmt.Sprintf(" AND sighted_at <= $%d", len(args))
	}
	q += ` ORDER BY sighted_at, id`

	var out []entity.Sighting
	err := r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}

func (r *SightingRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sightings WHERE id=$1`, id)
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

// UserID maps a principal name to its users.id; sql.ErrNoRows when unknown.
func (r *SightingRepo) UserID(ctx context.Context, username string) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `SELECT id FROM users WHERE username=$1`, username)
	return id, err
}
