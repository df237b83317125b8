package api

import (
	"net/http"
	"strings"

	"archie-core-shopify-app/internal/domain"
)

const (
	// ReauthorizeHeader tells App Bridge the fetch needs a top-level reauthorization
	ReauthorizeHeader = "X-Shopify-API-Request-Failure-Reauthorize"
	// ReauthorizeURLHeader carries where App Bridge should navigate
	ReauthorizeURLHeader = "X-Shopify-API-Request-Failure-Reauthorize-Url"

	exitIframePath = "/ExitIframe"
)

// Redirector issues plain and iframe-escaping redirects
type Redirector struct {
	hostURL    string
	isEmbedded bool
}

// NewRedirector creates a redirector resolving relative targets against hostURL
func NewRedirector(hostURL string, isEmbedded bool) *Redirector {
	return &Redirector{
		hostURL:    strings.TrimRight(hostURL, "/"),
		isEmbedded: isEmbedded,
	}
}

// Plain sends an ordinary 302
func (rd *Redirector) Plain(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusFound)
}

// TopLevel navigates the top window to target. Fetch requests get a 403 with
// reauthorize headers, embedded document loads go through the ExitIframe page,
// everything else gets a plain redirect.
func (rd *Redirector) TopLevel(w http.ResponseWriter, r *http.Request, target string) {
	absolute := rd.absolute(target)

	if domain.BearerToken(r.Header.Get("Authorization")) != "" {
		w.Header().Set(ReauthorizeHeader, "1")
		w.Header().Set(ReauthorizeURLHeader, absolute)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	query := r.URL.Query()
	if rd.isEmbedded && query.Get("embedded") == "1" {
		query.Set("redirectUri", absolute)
		http.Redirect(w, r, exitIframePath+"?"+query.Encode(), http.StatusFound)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (rd *Redirector) absolute(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return rd.hostURL + target
}
