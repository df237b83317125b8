package application

import (
	"context"
	"net/http"
	"sync"
	"time"

	"archie-core-shopify-app/internal/domain"
)

// --- fakes ---

type fakeSessionStore struct {
	mu                sync.Mutex
	sessions          map[string]*domain.Session
	refresh           map[string]*domain.RefreshMetadata
	loadErr           error
	storeErr          error
	supportsRefresh   bool
	supportsErr       error
	storeCalls        int
	refreshWrites     int
	findRefreshCalled int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]*domain.Session),
		refresh:  make(map[string]*domain.RefreshMetadata),
	}
}

func (f *fakeSessionStore) put(s *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *s
	f.sessions[s.ID] = &copied
}

func (f *fakeSessionStore) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionStore) LoadOfflineSession(ctx context.Context, shop string) (*domain.Session, error) {
	return f.LoadSession(ctx, domain.OfflineSessionID(shop))
}

func (f *fakeSessionStore) StoreSession(ctx context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeCalls++
	if f.storeErr != nil {
		return f.storeErr
	}
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionStore) FindRefreshMetadata(ctx context.Context, id string) (*domain.RefreshMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findRefreshCalled++
	meta, ok := f.refresh[id]
	if !ok || meta.RefreshToken == "" {
		return nil, nil
	}
	return meta, nil
}

func (f *fakeSessionStore) UpdateRefreshMetadata(ctx context.Context, id string, refreshToken string, expiresAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return nil
	}
	f.refreshWrites++
	f.refresh[id] = &domain.RefreshMetadata{SessionID: id, RefreshToken: refreshToken, RefreshTokenExpiresAt: expiresAt}
	return nil
}

func (f *fakeSessionStore) SupportsRefreshMetadata(ctx context.Context) (bool, error) {
	return f.supportsRefresh, f.supportsErr
}

type fakeIdentity struct {
	currentSessionIDFn func(r *http.Request, mode domain.AccessMode) (string, error)
}

func (f *fakeIdentity) CurrentSessionID(r *http.Request, mode domain.AccessMode) (string, error) {
	if f.currentSessionIDFn != nil {
		return f.currentSessionIDFn(r, mode)
	}
	return "", nil
}

type fakeVerifier struct {
	calls    int
	verifyFn func(r *http.Request) (*domain.VerificationResult, error)
}

func (f *fakeVerifier) VerifyAppHomeRequest(r *http.Request) (*domain.VerificationResult, error) {
	f.calls++
	if f.verifyFn != nil {
		return f.verifyFn(r)
	}
	return &domain.VerificationResult{OK: false, Response: domain.PlatformResponse{Status: http.StatusUnauthorized}}, nil
}

type fakeExchanger struct {
	exchangeCalls int
	refreshCalls  int
	exchangeFn    func(mode domain.AccessMode, idToken string, invalid domain.PlatformResponse) (*domain.ExchangeResult, error)
	refreshFn     func(req domain.RefreshRequest) (*domain.ExchangeResult, error)
}

func (f *fakeExchanger) ExchangeToken(ctx context.Context, mode domain.AccessMode, idToken string, invalid domain.PlatformResponse) (*domain.ExchangeResult, error) {
	f.exchangeCalls++
	if f.exchangeFn != nil {
		return f.exchangeFn(mode, idToken, invalid)
	}
	return &domain.ExchangeResult{OK: false, Response: domain.PlatformResponse{Status: http.StatusInternalServerError}}, nil
}

func (f *fakeExchanger) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.ExchangeResult, error) {
	f.refreshCalls++
	if f.refreshFn != nil {
		return f.refreshFn(req)
	}
	return &domain.ExchangeResult{OK: false}, nil
}

type fakeBilling struct {
	calls   int
	checkFn func(session *domain.Session) domain.BillingResult
}

func (f *fakeBilling) Check(ctx context.Context, session *domain.Session, config domain.BillingConfig) domain.BillingResult {
	f.calls++
	if f.checkFn != nil {
		return f.checkFn(session)
	}
	return domain.HasPayment()
}

type fakeProbe struct {
	calls   int
	status  int
	err     error
	probeFn func(session *domain.Session) (int, error)
}

func (f *fakeProbe) Probe(ctx context.Context, session *domain.Session) (int, error) {
	f.calls++
	if f.probeFn != nil {
		return f.probeFn(session)
	}
	if f.status == 0 && f.err == nil {
		return http.StatusOK, nil
	}
	return f.status, f.err
}
