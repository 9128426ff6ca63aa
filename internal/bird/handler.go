package bird

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

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
	r.Get("/by-name", h.GetByName)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// BirdRequest is the create/update body.
type BirdRequest struct {
	CommonName        string  `json:"commonName" validate:"required,max=50"`
	ScientificName    string  `json:"scientificName" validate:"required,max=50"`
	ConservationModel string  `json:"conservationModel" validate:"required,max=255"`
	Notes             string  `json:"notes" validate:"max=255"`
	FamilyID          *int64  `json:"idFamily" validate:"omitempty,gt=0"`
	HabitatIDs        []int64 `json:"idHabitats" validate:"dive,gt=0"`
}

func (req BirdRequest) input() Input {
	return Input{
		CommonName:        req.CommonName,
		ScientificName:    req.ScientificName,
		ConservationModel: req.ConservationModel,
		Notes:             req.Notes,
		FamilyID:          req.FamilyID,
		HabitatIDs:        req.HabitatIDs,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (BirdRequest, bool) {
	var req BirdRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return req, false
	}
	return req, true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Create(r.Context(), req.input())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Infow("bird created", "id", b.ID, "scientific_name", b.ScientificName)
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Update(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) GetByName(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetByName(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
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
	h.logger.Debugw("bird request failed", "err", err)
	httpx.RespondError(w, err)
}
