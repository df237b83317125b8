package api

import (
	"encoding/json"
	"net/http"

	"archie-core-shopify-app/internal/domain"
)

// SessionInfoHandler describes the session the guard attached to the request.
// The access token is never serialized.
func SessionInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := domain.GetSessionFromContext(r.Context())
		if session == nil {
			http.Error(w, "No active session", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(session)
	}
}
