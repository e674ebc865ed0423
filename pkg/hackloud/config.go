// Package hackloud provides a Go client for the Hackloud ("Mi Disco Duro")
// REST API: authentication, user profiles, storage, file previews and
// assessments.
package hackloud

import "time"

// Default service URLs for a local backend.
const (
	DefaultBaseURL   = "http://localhost:3000"
	DefaultStaticURL = "http://localhost:3000/uploads"
)

// Default client settings.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 500 * time.Millisecond
	DefaultMaxPreviewBytes = 1 << 20
)

// Config holds all configuration for the Hackloud API client.
type Config struct {
	// BaseURL is the root of the REST API.
	BaseURL string

	// StaticURL is where uploaded assets such as avatars are served.
	StaticURL string

	// Timeout is the HTTP client timeout for each request.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for idempotent requests.
	MaxRetries int

	// RetryDelay is the initial delay between retries (exponential backoff applied).
	RetryDelay time.Duration

	// MaxPreviewBytes caps the body read for text previews.
	MaxPreviewBytes int64
}

// DefaultConfig returns a Config with default URLs and settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		StaticURL:       DefaultStaticURL,
		Timeout:         DefaultTimeout,
		MaxRetries:      DefaultMaxRetries,
		RetryDelay:      DefaultRetryDelay,
		MaxPreviewBytes: DefaultMaxPreviewBytes,
	}
}

// WithBaseURL returns a copy of the config pointing at baseURL.
func (c Config) WithBaseURL(baseURL string) Config {
	c.BaseURL = baseURL
	return c
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

// WithRetries returns a copy of the config with the specified retry settings.
func (c Config) WithRetries(maxRetries int, retryDelay time.Duration) Config {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
	return c
}
