package model

// StatusResponse reports the outcome of a write operation.
type StatusResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	PK      any    `json:"pk,omitempty"`
}

// SessionResponse is returned by login, refresh, and /me.
type SessionResponse struct {
	Message string       `json:"message"`
	User    *UserPayload `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// FieldError describes one payload validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
