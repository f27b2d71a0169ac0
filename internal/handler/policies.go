package handler

import (
	"net/http"

	"github.com/policyops/acctd/internal/service"
)

// PolicyHandler serves the policy special flows: filtered listing, the
// insert-or-merge upsert with PK_Number resolution, bulk field updates, and
// the premium total.
type PolicyHandler struct {
	svc *service.PolicyService
}

func NewPolicyHandler(svc *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{svc: svc}
}

func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context(), queryFilters(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *PolicyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := readJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := h.svc.Upsert(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *PolicyHandler) UpdateFieldForAll(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := readJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := h.svc.UpdateFieldForAll(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *PolicyHandler) Premium(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Premium(r.Context(), queryFilters(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
