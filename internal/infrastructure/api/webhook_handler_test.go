package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"archie-core-shopify-app/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookRequest(topic string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks", strings.NewReader(`{"myshopify_domain":"`+testShop+`"}`))
	if topic != "" {
		req.Header.Set("X-Shopify-Topic", topic)
	}
	req.Header.Set("X-Shopify-Shop-Domain", testShop)
	return req
}

func TestWebhookHandler_Publishes(t *testing.T) {
	publisher := &fakePublisher{}
	rec := httptest.NewRecorder()

	WebhookHandler(fakeVerifier{ok: true}, publisher, zerolog.Nop())(rec, newWebhookRequest(domain.TopicAppUninstalled))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, domain.TopicAppUninstalled, publisher.events[0].Topic)
	assert.Equal(t, testShop, publisher.events[0].Shop)
	assert.Contains(t, string(publisher.events[0].Payload), "myshopify_domain")
}

func TestWebhookHandler_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		verifier  fakeVerifier
		publisher *fakePublisher
		topic     string
		status    int
	}{
		{name: "missing topic", verifier: fakeVerifier{ok: true}, publisher: &fakePublisher{}, status: http.StatusBadRequest},
		{name: "bad signature", verifier: fakeVerifier{ok: false}, publisher: &fakePublisher{}, topic: "app/uninstalled", status: http.StatusUnauthorized},
		{name: "handler failure", verifier: fakeVerifier{ok: true}, publisher: &fakePublisher{err: errBoom}, topic: "app/uninstalled", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WebhookHandler(tt.verifier, tt.publisher, zerolog.Nop())(rec, newWebhookRequest(tt.topic))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
