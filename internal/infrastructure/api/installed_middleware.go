package api

import (
	"net/http"

	"archie-core-shopify-app/internal/application"
	"archie-core-shopify-app/internal/domain"
	"archie-core-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// EnsureInstalled lets page requests through only for shops with a stored
// access token, sending the rest to the auth entry point
func EnsureInstalled(installations ports.InstallationChecker, isEmbedded bool, authPath string, logger zerolog.Logger) func(http.Handler) http.Handler {
	if authPath == "" {
		authPath = application.DefaultAuthPath
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if application.IsExitIframePath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			// managed install: the storefront load must not depend on a stored session
			if isEmbedded && r.URL.Query().Get("embedded") == "1" {
				next.ServeHTTP(w, r)
				return
			}

			shop := domain.SanitizeShopDomain(r.URL.Query().Get("shop"))
			installed := false
			if shop != "" {
				hasToken, err := installations.HasTokenForShop(r.Context(), shop)
				if err != nil {
					logger.Warn().Err(err).Str("shop", shop).Msg("Failed to check installation")
				}
				installed = err == nil && hasToken
			}

			if !installed {
				target := authPath
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
