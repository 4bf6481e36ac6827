package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// AllowedMethods and AllowedHeaders are fixed for every route.
var (
	AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	AllowedHeaders = []string{"Content-Type", "Authorization"}
)

// CORS applies the gateway's cross-origin policy for the given origins.
// Preflight requests are answered here and never reach a route handler.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: AllowedMethods,
		AllowedHeaders: AllowedHeaders,
		MaxAge:         600,
	})
}
