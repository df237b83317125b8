package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestEnsureInstalled(t *testing.T) {
	installations := &fakeInstallations{shops: map[string]bool{
		testShop:                    true,
		"online-only.myshopify.com": true,
		"empty.myshopify.com":       false,
	}}
	handler := EnsureInstalled(installations, true, "", zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		target   string
		status   int
		location string
	}{
		{name: "installed shop", target: "/?shop=" + testShop, status: http.StatusOK},
		{name: "shop with only online sessions", target: "/?shop=online-only.myshopify.com", status: http.StatusOK},
		{name: "exit iframe", target: "/ExitIframe?shop=other.myshopify.com", status: http.StatusOK},
		{name: "managed install", target: "/?embedded=1&shop=other.myshopify.com", status: http.StatusOK},
		{name: "unknown shop", target: "/?shop=other.myshopify.com&host=abc", status: http.StatusFound, location: "/api/auth?shop=other.myshopify.com&host=abc"},
		{name: "session without token", target: "/?shop=empty.myshopify.com", status: http.StatusFound, location: "/api/auth?shop=empty.myshopify.com"},
		{name: "no shop", target: "/", status: http.StatusFound, location: "/api/auth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
		})
	}
}

func TestEnsureInstalled_StoreErrorRedirects(t *testing.T) {
	installations := &fakeInstallations{err: errBoom}
	handler := EnsureInstalled(installations, false, "/auth", zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?embedded=1&shop="+testShop, nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth?embedded=1&shop="+testShop, rec.Header().Get("Location"))
}
