package api

import (
	"net/http"

	"github.com/go-chi/cors"
)

// AccessControlHeaders lets the embedding admin call the app and read the
// reauthorization headers. Non-embedded apps get no CORS headers.
func AccessControlHeaders(isEmbedded bool) func(http.Handler) http.Handler {
	if !isEmbedded {
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{
			"X-Shopify-Retry-Invalid-Session-Request",
			ReauthorizeHeader,
			ReauthorizeURLHeader,
		},
	})
}
