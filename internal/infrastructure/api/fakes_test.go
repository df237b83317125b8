package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"archie-core-shopify-app/internal/application"
	"archie-core-shopify-app/internal/domain"
)

const testShop = "test-shop.myshopify.com"

type fakeResolver struct {
	outcome application.Outcome
	err     error
	mode    domain.AccessMode
}

func (f *fakeResolver) Resolve(r *http.Request, mode domain.AccessMode) (application.Outcome, error) {
	f.mode = mode
	return f.outcome, f.err
}

type recordingMetrics struct {
	outcomes []string
}

func (m *recordingMetrics) RecordGuardOutcome(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) RecordPlatformCall(string, int, time.Duration) {}

func (m *recordingMetrics) RecordBillingCache(bool) {}

type fakeInstallations struct {
	shops map[string]bool
	err   error
}

func (f *fakeInstallations) HasTokenForShop(ctx context.Context, shop string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.shops[shop], nil
}

type fakeInstaller struct {
	authURL     string
	beginErr    error
	token       *domain.ExchangedAccessToken
	callbackErr error
	began       []string
	cleared     bool
}

func (f *fakeInstaller) Begin(w http.ResponseWriter, shop string) (string, error) {
	f.began = append(f.began, shop)
	return f.authURL, f.beginErr
}

func (f *fakeInstaller) Callback(ctx context.Context, r *http.Request) (*domain.ExchangedAccessToken, error) {
	return f.token, f.callbackErr
}

func (f *fakeInstaller) ClearState(w http.ResponseWriter) { f.cleared = true }

func (f *fakeInstaller) EmbeddedAppURL(shop string) string {
	return "https://" + shop + "/admin/apps/test-key"
}

type fakeSaver struct {
	modes []domain.AccessMode
	fail  bool
}

func (f *fakeSaver) StoreExchangedSession(ctx context.Context, token *domain.ExchangedAccessToken, mode domain.AccessMode, userID string) *domain.Session {
	f.modes = append(f.modes, mode)
	if f.fail {
		return nil
	}
	return &domain.Session{
		ID:          domain.OfflineSessionID(token.Shop),
		Shop:        token.Shop,
		AccessToken: token.Token,
	}
}

type fakeCookie struct {
	written string
}

func (f *fakeCookie) Write(w http.ResponseWriter, sessionID string, expires *time.Time) error {
	f.written = sessionID
	return nil
}

type fakeVerifier struct {
	ok bool
}

func (f fakeVerifier) VerifyWebhook(r *http.Request) bool { return f.ok }

type fakePublisher struct {
	events []*domain.WebhookEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, event *domain.WebhookEvent) error {
	f.events = append(f.events, event)
	return f.err
}

var errBoom = errors.New("boom")
