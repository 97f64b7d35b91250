package handler

import (
	"encoding/json"
	"net/http"

	"notevault-server/internal/domain"
	"notevault-server/internal/middleware"
	"notevault-server/internal/service"
	"notevault-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

type UserHandler struct {
	service  *service.UserService
	validate *validator.Validate
	errs     *ErrorMapper
}

func NewUserHandler(service *service.UserService, errs *ErrorMapper) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(),
		errs:     errs,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), middleware.GetUserID(r))
	if err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), middleware.GetUserID(r), &req); err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, map[string]string{
		"message": "password changed",
	})
}
