package api

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

var exitIframeTemplate = template.Must(template.New("exit-iframe").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta name="shopify-api-key" content="{{.APIKey}}" />
    <script src="https://cdn.shopify.com/shopifycloud/app-bridge.js"></script>
  </head>
  <body>
    <script>window.open({{.RedirectURI}}, "_top");</script>
  </body>
</html>
`))

// ExitIframeHandler renders the page that moves the embedding admin's top
// window to redirectUri. Only targets on the app host or a shop admin are allowed.
func ExitIframeHandler(apiKey, hostURL string, logger zerolog.Logger) http.HandlerFunc {
	appHost := ""
	if u, err := url.Parse(hostURL); err == nil {
		appHost = u.Host
	}

	return func(w http.ResponseWriter, r *http.Request) {
		redirectURI := r.URL.Query().Get("redirectUri")
		target, ok := exitTarget(redirectURI, appHost)
		if !ok {
			logger.Warn().Str("redirectUri", redirectURI).Msg("Rejected ExitIframe redirect")
			http.Error(w, "Invalid redirectUri", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := exitIframeTemplate.Execute(w, struct {
			APIKey      string
			RedirectURI string
		}{apiKey, target.String()}); err != nil {
			logger.Error().Err(err).Msg("Failed to render ExitIframe page")
		}
	}
}

func exitTarget(raw, appHost string) (*url.URL, bool) {
	if raw == "" {
		return nil, false
	}
	target, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}

	if appHost != "" && target.Host == appHost {
		return target, target.Scheme == "https" || target.Scheme == "http"
	}
	platformHost := target.Host == "admin.shopify.com" || strings.HasSuffix(target.Host, ".myshopify.com")
	return target, target.Scheme == "https" && platformHost
}
