// Package openapi generates the API document from the entity registry, so
// the published surface always matches the mounted routes.
package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/policyops/acctd/internal/service"
)

// Generate builds an OpenAPI 3.1 document covering the auth endpoints, the
// entity registry, and the special-purpose routes.
func Generate(registry *service.Registry, baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Account Administration API",
			Description: "REST API for insurance account and policy administration.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["cookieAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "cookie",
			Name: "session",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"cookieAuth": {}},
	}

	doc.Paths = openapi3.NewPaths()

	registerSharedSchemas(doc)
	addAuthPaths(doc)
	for _, svc := range registry.All() {
		addEntityPaths(doc, svc.Config())
	}
	addDropdownPaths(doc)
	addAssociationPaths(doc)
	addPolicyPaths(doc)
	addSearchPaths(doc)
	addComposePath(doc)
	addHealthPaths(doc)

	return doc
}

func registerSharedSchemas(doc *openapi3.T) {
	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}

	doc.Components.Schemas["StatusResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"count":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
				"pk":      &openapi3.SchemaRef{Value: &openapi3.Schema{}},
			},
		},
	}

	doc.Components.Schemas["Record"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:                 &openapi3.Types{"object"},
			AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(true)},
		},
	}

	doc.Components.Schemas["RecordList"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: openapi3.NewSchemaRef("#/components/schemas/Record", nil),
		},
	}

	doc.Components.Schemas["SessionResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"user": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"id":         &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
							"first_name": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"last_name":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"email":      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"role":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"branch":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
						},
					},
				},
			},
		},
	}
}

func boolPtr(b bool) *bool { return &b }

func jsonRequest(ref string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content:  openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef(ref, nil)),
		},
	}
}

func jsonResponse(description, ref string) *openapi3.Response {
	return &openapi3.Response{
		Description: &description,
		Content:     openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef(ref, nil)),
	}
}

func operation(opID, summary, tag string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = opID
	op.Summary = summary
	op.Tags = []string{tag}
	op.Responses = openapi3.NewResponses()
	op.Responses.Set("400", &openapi3.ResponseRef{Value: jsonResponse("Invalid request", "#/components/schemas/ErrorResponse")})
	op.Responses.Set("500", &openapi3.ResponseRef{Value: jsonResponse("Database error", "#/components/schemas/ErrorResponse")})
	return op
}

func queryParam(name string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:   name,
			In:     "query",
			Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
		},
	}
}

func addAuthPaths(doc *openapi3.T) {
	login := operation("login", "Sign in with local credentials", "auth")
	login.Security = &openapi3.SecurityRequirements{}
	login.RequestBody = jsonRequest("#/components/schemas/Record")
	login.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Session created", "#/components/schemas/SessionResponse")})
	doc.Paths.Set("/login", &openapi3.PathItem{Post: login})

	me := operation("currentUser", "Describe the signed-in user", "auth")
	me.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Current session", "#/components/schemas/SessionResponse")})
	doc.Paths.Set("/me", &openapi3.PathItem{Get: me})

	logout := operation("logout", "Clear the session cookies", "auth")
	logout.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Signed out", "#/components/schemas/StatusResponse")})
	doc.Paths.Set("/logout", &openapi3.PathItem{Post: logout})

	refresh := operation("refreshToken", "Issue a fresh access token", "auth")
	refresh.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Session refreshed", "#/components/schemas/SessionResponse")})
	doc.Paths.Set("/refresh_token", &openapi3.PathItem{Post: refresh})
}

func addEntityPaths(doc *openapi3.T, cfg service.EntityConfig) {
	tag := cfg.Name

	list := operation(cfg.Name+"_list", fmt.Sprintf("List %s records", cfg.Name), tag)
	for _, filter := range cfg.AllowedFilters {
		list.Parameters = append(list.Parameters, queryParam(filter))
	}
	list.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Matching records", "#/components/schemas/RecordList")})
	doc.Paths.Set(cfg.Route+"/", &openapi3.PathItem{Get: list})

	upsert := operation(cfg.Name+"_upsert", fmt.Sprintf("Insert or update %s records", cfg.Name), tag)
	upsert.RequestBody = jsonRequest("#/components/schemas/RecordList")
	upsert.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Write outcome", "#/components/schemas/StatusResponse")})
	doc.Paths.Set(cfg.Route+"/upsert", &openapi3.PathItem{Post: upsert})

	if cfg.AllowDelete {
		del := operation(cfg.Name+"_delete", fmt.Sprintf("Delete %s records", cfg.Name), tag)
		del.RequestBody = jsonRequest("#/components/schemas/RecordList")
		del.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Delete outcome", "#/components/schemas/StatusResponse")})
		doc.Paths.Set(cfg.Route+"/delete", &openapi3.PathItem{Post: del})
	}
}

func addDropdownPaths(doc *openapi3.T) {
	nameParam := &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:     "dropdown_name",
			In:       "path",
			Required: true,
			Schema:   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
		},
	}

	get := operation("dropdown_get", "List dropdown values", "dropdowns")
	get.Parameters = append(get.Parameters, nameParam)
	get.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Dropdown values", "#/components/schemas/RecordList")})
	doc.Paths.Set("/dropdowns/{dropdown_name}", &openapi3.PathItem{Get: get})

	upsert := operation("dropdown_upsert", "Insert or update dropdown values", "dropdowns")
	upsert.Parameters = append(upsert.Parameters, nameParam)
	upsert.RequestBody = jsonRequest("#/components/schemas/RecordList")
	upsert.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Write outcome", "#/components/schemas/StatusResponse")})
	doc.Paths.Set("/dropdowns/{dropdown_name}/upsert", &openapi3.PathItem{Post: upsert})

	del := operation("dropdown_delete", "Delete dropdown values", "dropdowns")
	del.Parameters = append(del.Parameters, nameParam)
	del.RequestBody = jsonRequest("#/components/schemas/RecordList")
	del.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Delete outcome", "#/components/schemas/StatusResponse")})
	doc.Paths.Set("/dropdowns/{dropdown_name}/delete", &openapi3.PathItem{Post: del})
}

func addAssociationPaths(doc *openapi3.T) {
	get := operation("associations_get", "List the associations of one parent account", "sac_account_associations")
	get.Parameters = append(get.Parameters, queryParam("ParentAccount"))
	get.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Associations with account details", "#/components/schemas/RecordList")})
	doc.Paths.Set("/sac/account_associations/", &openapi3.PathItem{Get: get})

	add := operation("associations_add", "Link child accounts to a parent", "sac_account_associations")
	add.RequestBody = jsonRequest("#/components/schemas/Record")
	add.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Write outcome", "#/components/schemas/StatusResponse")})
	doc.Paths.Set("/sac/account_associations/add", &openapi3.PathItem{Post: add})

	del := operation("associations_delete", "Unlink child accounts from a parent", "sac_account_associations")
	del.RequestBody = jsonRequest("#/components/schemas/Record")
	del.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Delete outcome", "#/components/schemas/StatusResponse")})
	doc.Paths.Set("/sac/account_associations/delete", &openapi3.PathItem{Post: del})
}

func addPolicyPaths(doc *openapi3.T) {
	for _, prefix := range []string{"/sac/policies", "/cct/policies"} {
		tag := "policies"

		list := operation(opID(prefix, "list"), "List policies", tag)
		list.Parameters = append(list.Parameters, queryParam("CustomerNum"), queryParam("PolicyNum"), queryParam("PolicyStatus"))
		list.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Matching policies", "#/components/schemas/RecordList")})
		doc.Paths.Set(prefix+"/", &openapi3.PathItem{Get: list})

		upsert := operation(opID(prefix, "upsert"), "Insert or update one policy", tag)
		upsert.RequestBody = jsonRequest("#/components/schemas/Record")
		upsert.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Write outcome with the row key", "#/components/schemas/StatusResponse")})
		doc.Paths.Set(prefix+"/upsert", &openapi3.PathItem{Post: upsert})

		bulk := operation(opID(prefix, "update_field"), "Set one column across matching policies", tag)
		bulk.RequestBody = jsonRequest("#/components/schemas/Record")
		bulk.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Update outcome", "#/components/schemas/StatusResponse")})
		doc.Paths.Set(prefix+"/update_field_for_all_policies", &openapi3.PathItem{Post: bulk})

		premium := operation(opID(prefix, "premium"), "Sum the premium of matching policies", tag)
		premium.Parameters = append(premium.Parameters, queryParam("CustomerNum"), queryParam("PolicyStatus"))
		premium.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Premium rollup", "#/components/schemas/Record")})
		doc.Paths.Set(prefix+"/get_premium", &openapi3.PathItem{Get: premium})
	}

	for _, p := range []string{"policy_statuses", "policy_numbers"} {
		op := operation("cct_"+p, "List distinct "+p+" for one customer", "policies")
		op.Parameters = append(op.Parameters, queryParam("customer_num"))
		op.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Filter values", "#/components/schemas/RecordList")})
		doc.Paths.Set("/cct/policy_filters/"+p, &openapi3.PathItem{Get: op})
	}
}

func addSearchPaths(doc *openapi3.T) {
	paths := map[string]string{
		"/affinity/search":       "Search affinity programs",
		"/sac/search":            "Search special accounts",
		"/cct/search":            "Search special accounts",
		"/cct/affinity_programs": "Search affinity programs",
	}
	for path, summary := range paths {
		op := operation(opID(path, "search"), summary, "search")
		op.Parameters = append(op.Parameters, queryParam("search_by"))
		op.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Search results", "#/components/schemas/RecordList")})
		doc.Paths.Set(path+"/", &openapi3.PathItem{Get: op})
	}
}

func addComposePath(doc *openapi3.T) {
	op := operation("outlook_compose", "Build an Outlook compose deep link", "compose")
	op.RequestBody = jsonRequest("#/components/schemas/Record")
	op.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Compose link", "#/components/schemas/Record")})
	doc.Paths.Set("/outlook_compose/compose_link", &openapi3.PathItem{Post: op})
}

func addHealthPaths(doc *openapi3.T) {
	for _, path := range []string{"/healthz", "/readyz"} {
		op := operation(opID(path, "check"), "Service health probe", "health")
		op.Security = &openapi3.SecurityRequirements{}
		op.Responses.Set("200", &openapi3.ResponseRef{Value: jsonResponse("Probe result", "#/components/schemas/Record")})
		doc.Paths.Set(path, &openapi3.PathItem{Get: op})
	}
}

func opID(path, suffix string) string {
	id := ""
	for _, r := range path {
		switch r {
		case '/', '{', '}':
			if len(id) > 0 && id[len(id)-1] != '_' {
				id += "_"
			}
		default:
			id += string(r)
		}
	}
	if len(id) > 0 && id[len(id)-1] == '_' {
		return id + suffix
	}
	if id == "" {
		return suffix
	}
	return id + "_" + suffix
}
