package handlers

import (
	"fmt"
	"net/http"

	"github.com/dom/doctree/internal/api/middleware"
	"github.com/dom/doctree/internal/api/response"
	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type CreateUserRequest struct {
	Name     string        `json:"name" validate:"required,max=100"`
	Password string        `json:"password" validate:"required,max=72"`
	Roles    []domain.Role `json:"roles" validate:"dive,oneof=Administrador Editor"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Password *string `json:"password" validate:"omitempty,max=72"`
}

type SetRolesRequest struct {
	Roles []domain.Role `json:"roles" validate:"required,dive,oneof=Administrador Editor"`
}

// UserResponse never carries the password digest.
type UserResponse struct {
	ID    domain.ID     `json:"id"`
	Name  string        `json:"name"`
	Roles []domain.Role `json:"roles"`
}

func toUserResponse(u domain.User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []domain.Role{}
	}
	return UserResponse{ID: u.ID, Name: u.Name, Roles: roles}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.userService.Create(r.Context(), service.CreateUserInput{
		Name:     req.Name,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, IDResponse{ID: user.ID})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.selfOrAdministrador(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.selfOrAdministrador(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	var req UpdateUserRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.userService.Update(r.Context(), id, service.UpdateUserInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	var req SetRolesRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.userService.SetRoles(r.Context(), id, req.Roles)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		response.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// selfOrAdministrador returns the path id when the caller is that user or
// holds Administrador.
func (h *UserHandler) selfOrAdministrador(r *http.Request) (domain.ID, error) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	id, err := pathID(r)
	if err != nil {
		return 0, err
	}
	if principal.UserID != id && !principal.HasRole(domain.RoleAdministrador) {
		return 0, fmt.Errorf("user %d may not access user %d: %w", principal.UserID, id, domain.ErrForbidden)
	}
	return id, nil
}
