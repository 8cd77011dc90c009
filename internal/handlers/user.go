package handlers

import (
	"net/http"

	"github.com/attendance-hq/apiserver/internal/services"
	"github.com/attendance-hq/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// UserHandler provides administrative user management.
type UserHandler struct {
	users  *services.UserService
	render *Renderer
}

func NewUserHandler(users *services.UserService, render *Renderer) *UserHandler {
	return &UserHandler{users: users, render: render}
}

// UserRouter registers user routes. Every route requires the ADMIN role.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Use(RequireRole(types.RoleAdmin))
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Get("/{userID}", handler.Get)
	r.Put("/{userID}", handler.Update)
	r.Delete("/{userID}", handler.Delete)
}

type UserListResponse struct {
	Success bool         `json:"success"`
	Users   []types.User `json:"users"`
}

type CreateUserRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture"`
}

type UpdateUserRequest struct {
	Email          *string `json:"email"`
	Password       *string `json:"password"`
	Name           *string `json:"name"`
	Role           *string `json:"role"`
	ProfilePicture *string `json:"profilePicture"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Success: true, Users: users})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Profile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Create(r.Context(), services.CreateUserInput{
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		Role:           req.Role,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserResponse{Success: true, User: user})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Update(r.Context(), chi.URLParam(r, "userID"), services.UpdateUserInput{
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		Role:           req.Role,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "userID")); err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "user deleted successfully"})
}
