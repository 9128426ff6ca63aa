package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/bird/entity"
)

type BirdRepo struct {
	db *sqlx.DB
}

func NewBirdRepo(db *sqlx.DB) *BirdRepo { return &BirdRepo{db: db} }

// EnsureTables requires the families and habitats tables to exist already.
func (r *BirdRepo) EnsureTables(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS birds (
  id BIGSERIAL PRIMARY KEY,
  common_name VARCHAR(50) NOT NULL,
  scientific_name VARCHAR(50) NOT NULL UNIQUE,
  conservation_model VARCHAR(255) NOT NULL,
  notes VARCHAR(255) NOT NULL DEFAULT '',
  family_id BIGINT REFERENCES families(id),
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS birds_habitats (
  bird_id BIGINT NOT NULL REFERENCES birds(id) ON DELETE CASCADE,
  habitat_id BIGINT NOT NULL REFERENCES habitats(id),
  PRIMARY KEY (bird_id, habitat_id)
);`)
	return err
}

const selectBirds = `SELECT b.id, b.common_name, b.scientific_name, b.conservation_model, b.notes,
	b.family_id, b.created_at, b.updated_at,
	COALESCE(array_agg(bh.habitat_id ORDER BY bh.habitat_id) FILTER (WHERE bh.habitat_id IS NOT NULL), '{}') AS habitat_ids
  FROM birds b
  LEFT JOIN birds_habitats bh ON bh.bird_id = b.id`

const groupBirds = ` GROUP BY b.id`

func (r *BirdRepo) Create(ctx context.Context, b *entity.Bird) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO birds (common_name, scientific_name, conservation_model, notes, family_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	if err := tx.QueryRowxContext(ctx, q, b.CommonName, b.ScientificName, b.ConservationModel, b.Notes, b.FamilyID).
		Scan(&b.ID, &b.CreatedAt); err != nil {
		return err
	}
	if err := linkHabitats(ctx, tx, b.ID, b.HabitatIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// Update replaces every column and the habitat set; sql.ErrNoRows when absent.
func (r *BirdRepo) Update(ctx context.Context, b *entity.Bird) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `UPDATE birds SET common_name=$1, scientific_name=$2, conservation_model=$3, notes=$4,
		family_id=$5, updated_at=NOW() WHERE id=$6 RETURNING created_at, updated_at`
	if err := tx.QueryRowxContext(ctx, q, b.CommonName, b.ScientificName, b.ConservationModel, b.Notes, b.FamilyID, b.ID).
		Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM birds_habitats WHERE bird_id=$1`, b.ID); err != nil {
		return err
	}
	if err := linkHabitats(ctx, tx, b.ID, b.HabitatIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func linkHabitats(ctx context.Context, tx *sqlx.Tx, birdID int64, habitats []int64) error {
	for _, h := range habitats {
		if _, err := tx.ExecContext(ctx, `INSERT INTO birds_habitats (bird_id, habitat_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, birdID, h); err != nil {
			return err
		}
	}
	return nil
}

func (r *BirdRepo) List(ctx context.Context) ([]entity.Bird, error) {
	var out []entity.Bird
	err := r.db.SelectContext(ctx, &out, selectBirds+groupBirds+` ORDER BY b.id`)
	return out, err
}

func (r *BirdRepo) Get(ctx context.Context, id int64) (*entity.Bird, error) {
	var b entity.Bird
	if err := r.db.GetContext(ctx, &b, selectBirds+` WHERE b.id=$1`+groupBirds, id); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByName matches the common or scientific name, case-insensitively.
func (r *BirdRepo) GetByName(ctx context.Context, name string) (*entity.Bird, error) {
	var b entity.Bird
	q := selectBirds + ` WHERE lower(b.common_name)=lower($1) OR lower(b.scientific_name)=lower($1)` + groupBirds + ` ORDER BY b.id LIMIT 1`
	if err := r.db.GetContext(ctx, &b, q, name); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BirdRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM birds WHERE id=$1`, id)
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
