package rest

// ErrorResponse is the JSON envelope for API error bodies.
type ErrorResponse struct {
	Error string `json:"error"`
}
