package handler

import (
	"net/http"

	"github.com/policyops/acctd/internal/service"
)

// SearchHandler serves the typed search endpoints and the policy filter
// lookups.
type SearchHandler struct {
	svc *service.SearchService
}

func NewSearchHandler(svc *service.SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

func (h *SearchHandler) AffinityPrograms(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.AffinityPrograms(r.Context(), queryString(r, "search_by"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *SearchHandler) SACAccounts(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.SACAccounts(r.Context(), queryString(r, "search_by"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *SearchHandler) PolicyStatuses(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.PolicyStatuses(r.Context(), queryString(r, "customer_num"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *SearchHandler) PolicyNumbers(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.PolicyNumbers(r.Context(), queryString(r, "customer_num"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
