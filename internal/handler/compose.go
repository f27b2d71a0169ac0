package handler

import (
	"net/http"

	"github.com/policyops/acctd/internal/service"
)

// ComposeHandler builds Outlook deep-link compose URLs from distribution
// entries.
type ComposeHandler struct {
	svc     *service.ComposeService
	enabled bool
}

func NewComposeHandler(svc *service.ComposeService, enabled bool) *ComposeHandler {
	return &ComposeHandler{svc: svc, enabled: enabled}
}

type composeRequest struct {
	Entries []map[string]any `json:"entries"`
	Subject string           `json:"subject"`
	Body    string           `json:"body"`
}

func (h *ComposeHandler) ComposeLink(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		writeError(w, http.StatusNotFound, "Compose links are disabled")
		return
	}
	var req composeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	link, err := h.svc.BuildLink(req.Entries, req.Subject, req.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
