// Package reference serves the two flat lookup resources, bird families and
// habitats, which share one shape.
package reference

import (
	"context"
	"fmt"
	"strings"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/reference/entity"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/httpx"
)

// Store is implemented by repo.EntryRepo. Missing rows surface as sql.ErrNoRows.
type Store interface {
	Create(ctx context.Context, e *entity.Entry) error
	Update(ctx context.Context, e *entity.Entry) error
	List(ctx context.Context) ([]entity.Entry, error)
	Get(ctx context.Context, id int64) (*entity.Entry, error)
	GetByName(ctx context.Context, name string) (*entity.Entry, error)
	Delete(ctx context.Context, id int64) error
}

// Service applies record semantics over a Store. kind names the resource in errors.
type Service struct {
	store Store
	kind  string
}

func NewService(store Store, kind string) *Service {
	return &Service{store: store, kind: kind}
}

func (s *Service) Create(ctx context.Context, name, description string) (*entity.Entry, error) {
	e := &entity.Entry{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, s.mapErr(err, 0)
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, id int64, name, description string) (*entity.Entry, error) {
	e := &entity.Entry{ID: id, Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	if err := s.store.Update(ctx, e); err != nil {
		return nil, s.mapErr(err, id)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context) ([]entity.Entry, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.Entry{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Entry, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, id)
	}
	return e, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*entity.Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	e, err := s.store.GetByName(ctx, name)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, fmt.Errorf("%s %q: %w", s.kind, name, httpx.ErrNotFound)
		}
		return nil, err
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.mapErr(err, id)
	}
	return nil
}

func (s *Service) mapErr(err error, id int64) error {
	switch {
	case database.IsNoRows(err):
		return fmt.Errorf("%s %d: %w", s.kind, id, httpx.ErrNotFound)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%s %d is still referenced: %w", s.kind, id, httpx.ErrConflict)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", s.kind, httpx.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", s.kind, err)
	}
}
