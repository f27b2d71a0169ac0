package handler

import (
	"net/http"

	"github.com/policyops/acctd/internal/service"
)

// EntityHandler exposes one configured entity: a filterable list, a batch
// upsert, and (where enabled) a batch delete. The frontend sends either a
// single object or an array for the write endpoints.
type EntityHandler struct {
	svc *service.EntityService
}

func NewEntityHandler(svc *service.EntityService) *EntityHandler {
	return &EntityHandler{svc: svc}
}

func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context(), queryFilters(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *EntityHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	rows, err := readRows(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := h.svc.Upsert(r.Context(), rows)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rows, err := readRows(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := h.svc.Delete(r.Context(), rows)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
