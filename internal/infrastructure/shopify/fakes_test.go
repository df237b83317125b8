package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"archie-core-shopify-app/internal/domain"
)

// fakeGraphQL answers queries with canned JSON, in call order
type fakeGraphQL struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	queries   []string
	vars      []map[string]interface{}
}

func (f *fakeGraphQL) Query(ctx context.Context, shop string, accessToken string, query string, vars map[string]interface{}, resp interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.queries)
	f.queries = append(f.queries, query)
	f.vars = append(f.vars, vars)

	if i < len(f.errs) && f.errs[i] != nil {
		return f.errs[i]
	}
	if i >= len(f.responses) {
		return fmt.Errorf("unexpected query #%d", i)
	}
	return json.Unmarshal([]byte(f.responses[i]), resp)
}

type fakeKeyValueStore struct {
	values map[string]string
	getErr error
	sets   int
}

func newFakeKeyValueStore() *fakeKeyValueStore {
	return &fakeKeyValueStore{values: make(map[string]string)}
}

func (f *fakeKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeKeyValueStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.sets++
	f.values[key] = value
	return nil
}

func (f *fakeKeyValueStore) Delete(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

type fakeBillingChecker struct {
	calls  int
	result domain.BillingResult
}

func (f *fakeBillingChecker) Check(ctx context.Context, session *domain.Session, config domain.BillingConfig) domain.BillingResult {
	f.calls++
	return f.result
}
