package sighting

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/sighting/repo"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/httpx"
)

type Handler struct {
	svc      *Service
	logger   *zap.SugaredLogger
	validate *validator.Validate
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger, validate: validator.New()}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/date-range", h.DateRange)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/birds/{id}/sightings", h.listBy(repo.ByBird))
	r.Get("/users/{id}/sightings", h.listBy(repo.ByUser))
	r.Get("/countries/{id}/sightings", h.listBy(repo.ByCountry))
	r.Get("/habitats/{id}/sightings", h.listBy(repo.ByHabitat))
}

// SightingRequest is the create/update body. The observer is the caller.
type SightingRequest struct {
	Latitude  *float64  `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64  `json:"longitude" validate:"required,min=-180,max=180"`
	SightedAt time.Time `json:"sightingDateTime" validate:"required"`
	Notes     string    `json:"notes" validate:"max=255"`
	CountryID int64     `json:"idCountry" validate:"required,gt=0"`
	BirdID    int64     `json:"idBird" validate:"required,gt=0"`
	HabitatID int64     `json:"idHabitat" validate:"required,gt=0"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req SightingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return Input{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return Input{}, false
	}
	return Input{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		SightedAt: req.SightedAt,
		Notes:     req.Notes,
		BirdID:    req.BirdID,
		HabitatID: req.HabitatID,
		CountryID: req.CountryID,
	}, true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	caller := security.AuthenticationFrom(r.Context())
	rec, err := h.svc.Create(r.Context(), caller.Username, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Infow("sighting recorded", "id", rec.ID, "bird", rec.BirdID, "user", caller.Username)
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, repo.Filter{})
}

func (h *Handler) listBy(col repo.Column) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		h.list(w, r, repo.Filter{Column: col, ID: id})
	}
}

func (h *Handler) DateRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		httpx.RespondError(w, fmt.Errorf("%w: from and to are required", httpx.ErrValidation))
		return
	}
	from, err := ParseTime(q.Get("from"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := ParseTime(q.Get("to"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.list(w, r, repo.Filter{From: &from, To: &to})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f repo.Filter) {
	out, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Debugw("sighting request failed", "err", err)
	httpx.RespondError(w, err)
}
