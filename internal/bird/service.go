package bird

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/bird/entity"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/httpx"
)

type Store interface {
	Create(ctx context.Context, b *entity.Bird) error
	Update(ctx context.Context, b *entity.Bird) error
	List(ctx context.Context) ([]entity.Bird, error)
	Get(ctx context.Context, id int64) (*entity.Bird, error)
	GetByName(ctx context.Context, name string) (*entity.Bird, error)
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// Input is a validated create/update payload.
type Input struct {
	CommonName        string
	ScientificName    string
	ConservationModel string
	Notes             string
	FamilyID          *int64
	HabitatIDs        []int64
}

func (in Input) bird(id int64) *entity.Bird {
	habitats := slices.Clone(in.HabitatIDs)
	slices.Sort(habitats)
	habitats = slices.Compact(habitats)
	if habitats == nil {
		habitats = []int64{}
	}
	return &entity.Bird{
		ID:                id,
		CommonName:        strings.TrimSpace(in.CommonName),
		ScientificName:    strings.TrimSpace(in.ScientificName),
		ConservationModel: strings.TrimSpace(in.ConservationModel),
		Notes:             strings.TrimSpace(in.Notes),
		FamilyID:          in.FamilyID,
		HabitatIDs:        habitats,
	}
}

func (s *Service) Create(ctx context.Context, in Input) (*entity.Bird, error) {
	b := in.bird(0)
	if err := s.store.Create(ctx, b); err != nil {
		return nil, mapErr(err, 0)
	}
	return b, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*entity.Bird, error) {
	b := in.bird(id)
	if err := s.store.Update(ctx, b); err != nil {
		return nil, mapErr(err, id)
	}
	return b, nil
}

func (s *Service) List(ctx context.Context) ([]entity.Bird, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.Bird{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Bird, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err, id)
	}
	return b, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*entity.Bird, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	b, err := s.store.GetByName(ctx, name)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, fmt.Errorf("bird %q: %w", name, httpx.ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return mapErr(err, id)
	}
	return nil
}

func mapErr(err error, id int64) error {
	switch {
	case database.IsNoRows(err):
		return fmt.Errorf("bird %d: %w", id, httpx.ErrNotFound)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("scientific name already registered: %w", httpx.ErrConflict)
	case database.IsForeignKeyViolation(err):
		// unknown family/habitat on write, or the bird still has sightings on delete
		return fmt.Errorf("bird %d: referenced record missing or still in use: %w", id, httpx.ErrConflict)
	default:
		return fmt.Errorf("bird: %w", err)
	}
}
