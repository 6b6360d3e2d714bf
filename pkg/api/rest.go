package api

// TokenRequest asks the server for a connection token.
type TokenRequest struct {
	ClientID string `json:"client_id"` // stable client identifier (UUID)
	Username string `json:"username"`
}

// TokenResponse carries the issued JWT access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // lifetime in seconds
}

// EntityResponse wraps a single entity returned by the REST API.
type EntityResponse struct {
	Entity map[string]any `json:"entity"`
}

// EntityListResponse wraps a collection listing.
type EntityListResponse struct {
	Entities []map[string]any `json:"entities"`
}

// ErrorResponse is the standard REST error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
