// Package cors lets browser front ends on other origins call the API.
package cors

import (
	"net/http"

	"github.com/rs/cors"
)

// Config lists the origins allowed to make cross-origin requests.
type Config struct {
	AllowedOrigins   []string
	AllowCredentials bool
	// MaxAge is how long, in seconds, browsers may cache a preflight.
	MaxAge int
}

// DefaultConfig allows a front end served by a local dev server.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins:   []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowCredentials: true,
		MaxAge:           600,
	}
}

// Middleware wraps next with CORS handling. With no allowed origins it
// returns next unchanged and cross-origin requests get no CORS headers.
func Middleware(config Config) func(http.Handler) http.Handler {
	if len(config.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: config.AllowCredentials,
		MaxAge:           config.MaxAge,
	})
	return c.Handler
}
