package server

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	UserID     string `json:"user_id"`
	Question   string `json:"question"`
	NotebookID string `json:"notebook_id,omitempty"`
}

// GenerateRequest is the body of the lesson content and quiz routes.
type GenerateRequest struct {
	UserID          string `json:"user_id,omitempty"`
	Topic           string `json:"topic"`
	NotebookID      string `json:"notebook_id,omitempty"`
	ForceRegenerate bool   `json:"force_regenerate,omitempty"`
}

// RateLimitedResponse is the 429 body, alongside the Retry-After header.
type RateLimitedResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}
