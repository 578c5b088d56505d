package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/banklinkhq/banklink/internal/errs"
	"github.com/banklinkhq/banklink/internal/middleware"
	"github.com/banklinkhq/banklink/internal/models"
	"github.com/banklinkhq/banklink/internal/response"
)

type UserService interface {
	EnsureUser(ctx context.Context, uid, email string) (*models.User, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) (*models.User, error)
}

type userHandlers struct {
	ResponseHandler response.ResponseHandler
	UserSvc         UserService
}

func NewUserHandlers(deps *Deps) *userHandlers {
	return &userHandlers{
		ResponseHandler: deps.ResponseHandler,
		UserSvc:         deps.UserSvc,
	}
}

func (h *userHandlers) UserRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.EnsureUser)
	r.Get("/me", h.GetMe)
	r.Patch("/me", h.UpdateMe)
	return r
}

// EnsureUser registers the caller on first contact; replays return the
// existing row.
func (h *userHandlers) EnsureUser(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	email := middleware.Email(r.Context())

	user, err := h.UserSvc.EnsureUser(r.Context(), uid, email)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, user)
}

func (h *userHandlers) GetMe(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	user, err := h.UserSvc.GetUser(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, user)
}

func (h *userHandlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("invalid request body"))
		return
	}

	user, err := h.UserSvc.UpdateUser(r.Context(), &models.User{
		UID:       middleware.UID(r.Context()),
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, user)
}
