package bird_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/bird"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/bird/entity"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/httpx"
)

type stubStore struct {
	created *entity.Bird
	err     error
}

func (s *stubStore) Create(_ context.Context, b *entity.Bird) error {
	if s.err != nil {
		return s.err
	}
	b.ID = 1
	s.created = b
	return nil
}

func (s *stubStore) Update(context.Context, *entity.Bird) error { return s.err }

func (s *stubStore) List(context.Context) ([]entity.Bird, error) { return nil, s.err }

func (s *stubStore) Get(context.Context, int64) (*entity.Bird, error) { return nil, sql.ErrNoRows }

func (s *stubStore) GetByName(context.Context, string) (*entity.Bird, error) {
	return nil, sql.ErrNoRows
}

func (s *stubStore) Delete(context.Context, int64) error { return s.err }

func TestCreateNormalizesHabitats(t *testing.T) {
	store := &stubStore{}
	svc := bird.NewService(store)

	b, err := svc.Create(context.Background(), bird.Input{
		CommonName:        " Barn owl ",
		ScientificName:    "Tyto alba",
		ConservationModel: "LC",
		HabitatIDs:        []int64{3, 1, 3, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "Barn owl", b.CommonName)
	assert.Equal(t, []int64{1, 2, 3}, []int64(b.HabitatIDs))
}

func TestCreateWithoutHabitatsYieldsEmptySet(t *testing.T) {
	svc := bird.NewService(&stubStore{})
	b, err := svc.Create(context.Background(), bird.Input{CommonName: "x", ScientificName: "y", ConservationModel: "z"})
	require.NoError(t, err)
	assert.NotNil(t, b.HabitatIDs)
	assert.Empty(t, b.HabitatIDs)
}

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()

	_, err := bird.NewService(&stubStore{err: &pq.Error{Code: "23505"}}).Create(ctx, bird.Input{})
	assert.ErrorIs(t, err, httpx.ErrConflict)

	_, err = bird.NewService(&stubStore{err: &pq.Error{Code: "23503"}}).Create(ctx, bird.Input{})
	assert.ErrorIs(t, err, httpx.ErrConflict)

	_, err = bird.NewService(&stubStore{}).Get(ctx, 9)
	assert.ErrorIs(t, err, httpx.ErrNotFound)

	_, err = bird.NewService(&stubStore{}).GetByName(ctx, " ")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = bird.NewService(&stubStore{}).GetByName(ctx, "dodo")
	assert.ErrorIs(t, err, httpx.ErrNotFound)

	list, err := bird.NewService(&stubStore{}).List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
}
