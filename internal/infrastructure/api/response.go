// Package api is the HTTP boundary of the session guard: middleware, redirects
// and the auth and webhook endpoints.
package api

import (
	"io"
	"net/http"
	"strings"

	"archie-core-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// WriteResult writes a platform-prescribed response. Multi-valued headers are
// joined with ", " and a missing status means 500.
func WriteResult(w http.ResponseWriter, resp domain.PlatformResponse, log *domain.ResultLog, logger zerolog.Logger) {
	if log != nil {
		logger.Info().Msgf("%s - %s", log.Code, log.Detail)
	}

	for name, values := range resp.Headers {
		w.Header().Set(name, strings.Join(values, ", "))
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.WriteHeader(status)

	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}
