package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Error     *APIError `json:"error"`
}

// TokenResponse is the data of a successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

// IDResponse is the data returned by create endpoints.
type IDResponse struct {
	ID string `json:"id"`
}
