package api

import (
	"fmt"
	"net/http"

	"archie-core-shopify-app/internal/application"
	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// SessionResolver resolves a request to a guard outcome
type SessionResolver interface {
	Resolve(r *http.Request, mode domain.AccessMode) (application.Outcome, error)
}

// SessionMiddleware guards handlers with an authorized session of accessMode.
// An unrecognized access mode fails here, before any request is served.
func SessionMiddleware(
	resolver SessionResolver,
	redirector *Redirector,
	accessMode string,
	recorder metrics.Recorder,
	logger zerolog.Logger,
) (func(http.Handler) http.Handler, error) {
	mode, err := domain.ParseAccessMode(accessMode)
	if err != nil {
		return nil, fmt.Errorf("session middleware: %w", err)
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome, err := resolver.Resolve(r, mode)
			if err != nil {
				recorder.RecordGuardOutcome("error")
				logger.Error().
					Err(err).
					Str("path", r.URL.Path).
					Str("accessMode", mode.String()).
					Msg("Session resolution failed")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			recorder.RecordGuardOutcome(outcome.Kind.String())

			switch outcome.Kind {
			case application.OutcomePassThrough:
				next.ServeHTTP(w, r)
			case application.OutcomeAuthorized:
				next.ServeHTTP(w, r.WithContext(domain.WithSession(r.Context(), outcome.Session)))
			case application.OutcomeRedirect:
				if outcome.TopLevel {
					redirector.TopLevel(w, r, outcome.RedirectURL)
				} else {
					redirector.Plain(w, r, outcome.RedirectURL)
				}
			case application.OutcomeShortCircuit:
				WriteResult(w, outcome.Response, outcome.Log, logger)
			default:
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		})
	}, nil
}
