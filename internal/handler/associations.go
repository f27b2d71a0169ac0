package handler

import (
	"net/http"

	"github.com/policyops/acctd/internal/service"
)

// AssociationHandler serves the account association endpoints. Associations
// are stored as symmetric pairs; the service maintains both directions.
type AssociationHandler struct {
	svc *service.AssociationService
}

func NewAssociationHandler(svc *service.AssociationService) *AssociationHandler {
	return &AssociationHandler{svc: svc}
}

func (h *AssociationHandler) Get(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Get(r.Context(), queryString(r, "parent_account"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *AssociationHandler) Add(w http.ResponseWriter, r *http.Request) {
	var payload service.AssociationPayload
	if err := readJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := h.svc.Add(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *AssociationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var payload service.AssociationPayload
	if err := readJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := h.svc.Delete(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
