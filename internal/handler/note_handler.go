package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"notevault-server/internal/domain"
	"notevault-server/internal/middleware"
	"notevault-server/internal/service"
	"notevault-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type NoteHandler struct {
	service  *service.NoteService
	validate *validator.Validate
	errs     *ErrorMapper
}

func NewNoteHandler(service *service.NoteService, errs *ErrorMapper) *NoteHandler {
	return &NoteHandler{
		service:  service,
		validate: validator.New(),
		errs:     errs,
	}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	note, err := h.service.Create(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Created(w, note)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.List(r.Context(), middleware.GetUserID(r))
	if err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, notes)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDFromPath(w, r)
	if !ok {
		return
	}

	note, err := h.service.Get(r.Context(), middleware.GetUserID(r), noteID)
	if err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, note)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDFromPath(w, r)
	if !ok {
		return
	}

	var req domain.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	note, err := h.service.Update(r.Context(), middleware.GetUserID(r), noteID, &req)
	if err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), middleware.GetUserID(r), noteID); err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, map[string]string{
		"message": "note deleted",
	})
}

func (h *NoteHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDFromPath(w, r)
	if !ok {
		return
	}

	versions, err := h.service.ListVersions(r.Context(), middleware.GetUserID(r), noteID)
	if err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, versions)
}

func (h *NoteHandler) Revert(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDFromPath(w, r)
	if !ok {
		return
	}

	var req domain.RevertNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	note, err := h.service.Revert(r.Context(), middleware.GetUserID(r), noteID, req.VersionID)
	if err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, note)
}

func (h *NoteHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDFromPath(w, r)
	if !ok {
		return
	}

	var req domain.UnlockNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	note, err := h.service.Unlock(r.Context(), noteID, req.Password)
	if err != nil {
		h.errs.Write(w, err)
		return
	}

	response.Success(w, note)
}

func noteIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid note id")
		return 0, false
	}
	return id, true
}
