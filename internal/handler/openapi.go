package handler

import (
	"net/http"

	"github.com/policyops/acctd/internal/openapi"
	"github.com/policyops/acctd/internal/service"
)

// OpenAPIHandler serves the generated document. The document is built once
// and reused; the registry is fixed at startup.
type OpenAPIHandler struct {
	doc any
}

func NewOpenAPIHandler(registry *service.Registry, baseURL string) *OpenAPIHandler {
	return &OpenAPIHandler{doc: openapi.Generate(registry, baseURL)}
}

func (h *OpenAPIHandler) Spec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.doc)
}
