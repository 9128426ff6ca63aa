package httpx_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/httpx"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("bird 3: %w", httpx.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("dup: %w", httpx.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: bad", httpx.ErrValidation), http.StatusBadRequest},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		httpx.RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}

	rec := httptest.NewRecorder()
	httpx.RespondError(rec, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestValidationProblemListsFields(t *testing.T) {
	type body struct {
		Name string `validate:"required"`
		Age  int    `validate:"gt=0"`
	}
	err := validator.New().Struct(body{})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	httpx.ValidationProblem(rec, err)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var pd httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pd))
	assert.Equal(t, map[string]string{"Name": "required", "Age": "gt"}, pd.Fields)
}

func TestIDParam(t *testing.T) {
	var got []error
	r := chi.NewRouter()
	r.Get("/birds/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		got = append(got, err)
		if err == nil {
			assert.Equal(t, int64(42), id)
		}
	})
	for _, p := range []string{"/birds/42", "/birds/0", "/birds/-1", "/birds/abc"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	require.Len(t, got, 4)
	assert.NoError(t, got[0])
	for _, err := range got[1:] {
		assert.ErrorIs(t, err, httpx.ErrValidation)
	}
}
