package reference_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/reference"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/reference/entity"
)

type memStore struct {
	rows       map[int64]entity.Entry
	next       int64
	referenced map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]entity.Entry{}, referenced: map[int64]bool{}}
}

func (m *memStore) Create(_ context.Context, e *entity.Entry) error {
	m.next++
	e.ID = m.next
	e.CreatedAt = time.Now()
	m.rows[e.ID] = *e
	return nil
}

func (m *memStore) Update(_ context.Context, e *entity.Entry) error {
	old, ok := m.rows[e.ID]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = old.CreatedAt, &now
	m.rows[e.ID] = *e
	return nil
}

func (m *memStore) List(context.Context) ([]entity.Entry, error) {
	var out []entity.Entry
	for i := int64(1); i <= m.next; i++ {
		if e, ok := m.rows[i]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*entity.Entry, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *memStore) GetByName(_ context.Context, name string) (*entity.Entry, error) {
	for i := int64(1); i <= m.next; i++ {
		if e, ok := m.rows[i]; ok && strings.EqualFold(e.Name, name) {
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if m.referenced[id] {
		return &pq.Error{Code: "23503"}
	}
	if _, ok := m.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.rows, id)
	return nil
}

func setup(store *memStore) http.Handler {
	h := reference.NewHandler(reference.NewService(store, "family"), nil)
	r := chi.NewRouter()
	r.Route("/families", h.Routes)
	return r
}

func call(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestCRUD(t *testing.T) {
	store := newMemStore()
	h := setup(store)

	rec := call(h, http.MethodPost, "/families", `{"name":" Accipitridae ","description":"hawks"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created entity.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Accipitridae", created.Name)

	rec = call(h, http.MethodGet, "/families/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(h, http.MethodGet, "/families/by-name?name=accipitridae", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hawks")

	rec = call(h, http.MethodPut, "/families/1", `{"name":"Accipitridae","description":"hawks and eagles"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "updatedAt")

	rec = call(h, http.MethodGet, "/families", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hawks and eagles")

	rec = call(h, http.MethodDelete, "/families/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = call(h, http.MethodGet, "/families/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmptyListIsArray(t *testing.T) {
	rec := call(setup(newMemStore()), http.MethodGet, "/families", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestErrors(t *testing.T) {
	store := newMemStore()
	h := setup(store)
	call(h, http.MethodPost, "/families", `{"name":"Strigidae"}`)
	store.referenced[1] = true

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/families", `{"description":"no name"}`, http.StatusBadRequest},
		{http.MethodPost, "/families", `{"name":"` + strings.Repeat("x", 51) + `"}`, http.StatusBadRequest},
		{http.MethodPost, "/families", `not json`, http.StatusBadRequest},
		{http.MethodGet, "/families/abc", "", http.StatusBadRequest},
		{http.MethodGet, "/families/0", "", http.StatusBadRequest},
		{http.MethodGet, "/families/99", "", http.StatusNotFound},
		{http.MethodGet, "/families/by-name", "", http.StatusBadRequest},
		{http.MethodGet, "/families/by-name?name=nope", "", http.StatusNotFound},
		{http.MethodPut, "/families/99", `{"name":"x"}`, http.StatusNotFound},
		{http.MethodDelete, "/families/99", "", http.StatusNotFound},
		{http.MethodDelete, "/families/1", "", http.StatusConflict},
	}
	for _, tc := range cases {
		rec := call(h, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}
