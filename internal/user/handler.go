package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/httpx"
)

// LoginObserver is notified of every login outcome.
type LoginObserver interface {
	Login(outcome string)
}

type noopLoginObserver struct{}

func (noopLoginObserver) Login(string) {}

// Handler exposes HTTP endpoints for registration, login and profiles.
type Handler struct {
	svc      *UserService
	logger   *zap.SugaredLogger
	validate *validator.Validate
	observer LoginObserver
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger, observer LoginObserver) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if observer == nil {
		observer = noopLoginObserver{}
	}
	return &Handler{svc: svc, logger: logger, validate: validator.New(), observer: observer}
}

// AuthRoutes mounts /login, /register and /userinfo.
func (h *Handler) AuthRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/register", h.Register)
	r.Get("/userinfo", h.Userinfo)
}

// UserRoutes mounts the profile lookup.
func (h *Handler) UserRoutes(r chi.Router) {
	r.Get("/{username}", h.Profile)
}

// RoleRequest lists the roles asked for at registration.
type RoleRequest struct {
	RoleListName []string `json:"roleListName" validate:"required,min=1,max=3,dive,required"`
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Name        string      `json:"name" validate:"required,max=30"`
	Username    string      `json:"username" validate:"required,email,max=30"`
	Email       string      `json:"email" validate:"required,email,max=100"`
	Password    string      `json:"password" validate:"required,max=72"`
	RoleRequest RoleRequest `json:"roleRequest"`
}

// LoginRequest login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	Token    string `json:"token"`
	Status   bool   `json:"status"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	sess, err := h.svc.Register(r.Context(), RegisterInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.RoleRequest.RoleListName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownRole):
			httpx.Problem(w, http.StatusBadRequest, "Unknown Role", err.Error())
		case errors.Is(err, ErrConflict):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logger.Errorw("register failed", "username", req.Username, "err", err)
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, AuthResponse{
		Username: sess.Username,
		Message:  "User registered successfully",
		Token:    sess.Token,
		Status:   true,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	sess, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.observer.Login("invalid_credentials")
			h.logger.Debugw("login failed", "username", req.Username)
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.observer.Login("error")
		h.logger.Errorw("login failed", "username", req.Username, "err", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.observer.Login("success")
	httpx.JSON(w, http.StatusOK, AuthResponse{
		Username: sess.Username,
		Message:  "User logged successfully",
		Token:    sess.Token,
		Status:   true,
	})
}

// UserinfoResponse describes the caller as the request filter established it.
type UserinfoResponse struct {
	Subject     string   `json:"sub"`
	Authorities []string `json:"authorities"`
	Source      string   `json:"source"`
}

// Userinfo echoes the current security context. It never touches the store.
func (h *Handler) Userinfo(w http.ResponseWriter, r *http.Request) {
	auth := security.AuthenticationFrom(r.Context())
	if !auth.Authenticated() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid token")
		return
	}
	httpx.JSON(w, http.StatusOK, UserinfoResponse{
		Subject:     auth.Username,
		Authorities: auth.Authorities.Slice(),
		Source:      auth.Source.String(),
	})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Profile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Errorw("profile lookup failed", "err", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}
