package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/policyops/acctd/internal/service"
)

// DropdownHandler serves the named dropdown catalog.
type DropdownHandler struct {
	svc *service.DropdownService
}

func NewDropdownHandler(svc *service.DropdownService) *DropdownHandler {
	return &DropdownHandler{svc: svc}
}

func (h *DropdownHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dropdown_name")
	records, err := h.svc.Get(r.Context(), name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *DropdownHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dropdown_name")
	rows, err := readRows(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := h.svc.Upsert(r.Context(), name, rows)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *DropdownHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dropdown_name")
	rows, err := readRows(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := h.svc.Delete(r.Context(), name, rows)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
