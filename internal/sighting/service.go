package sighting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/sighting/entity"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/sighting/repo"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/httpx"
)

type Store interface {
	Create(ctx context.Context, s *entity.Sighting) error
	Update(ctx context.Context, s *entity.Sighting) error
	Get(ctx context.Context, id int64) (*entity.Sighting, error)
	List(ctx context.Context, f repo.Filter) ([]entity.Sighting, error)
	Delete(ctx context.Context, id int64) error
	UserID(ctx context.Context, username string) (int64, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// Input is a validated create/update payload.
type Input struct {
	Latitude  float64
	Longitude float64
	SightedAt time.Time
	Notes     string
	BirdID    int64
	HabitatID int64
	CountryID int64
}

// Create records a sighting owned by the calling principal.
func (s *Service) Create(ctx context.Context, username string, in Input) (*entity.Sighting, error) {
	userID, err := s.store.UserID(ctx, username)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, fmt.Errorf("%w: caller %q has no account", httpx.ErrValidation, username)
		}
		return nil, err
	}
	rec := in.sighting(0)
	rec.UserID = userID
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, mapErr(err, 0)
	}
	return rec, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*entity.Sighting, error) {
	rec := in.sighting(id)
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, mapErr(err, id)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Sighting, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err, id)
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, f repo.Filter) ([]entity.Sighting, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, fmt.Errorf("%w: from must not be after to", httpx.ErrValidation)
	}
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.Sighting{}
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return mapErr(err, id)
	}
	return nil
}

func (in Input) sighting(id int64) *entity.Sighting {
	return &entity.Sighting{
		ID:        id,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		SightedAt: in.SightedAt.UTC(),
		Notes:     strings.TrimSpace(in.Notes),
		BirdID:    in.BirdID,
		HabitatID: in.HabitatID,
		CountryID: in.CountryID,
	}
}

func mapErr(err error, id int64) error {
	switch {
	case database.IsNoRows(err):
		return fmt.Errorf("sighting %d: %w", id, httpx.ErrNotFound)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown bird, habitat or country", httpx.ErrValidation)
	default:
		return fmt.Errorf("sighting: %w", err)
	}
}

// ParseTime accepts RFC 3339, a zone-less ISO date-time (read as UTC) or a bare date.
func ParseTime(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date-time", httpx.ErrValidation, v)
}
