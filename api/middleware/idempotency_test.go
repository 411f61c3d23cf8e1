package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

const batchesRoute = "/api/v1/labels/batches"

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	return req.WithContext(WithUserID(ctx, "user-1"))
}

func decodeErrorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error.Code
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"batch upload", http.MethodPost, "/api/v1/labels/batches", criticalIdempotencyTTL, true},
		{"single label", http.MethodPost, "/api/v1/labels/single", criticalIdempotencyTTL, true},
		{"plan change", http.MethodPut, "/api/admin/v1/users/{userId}/plan", defaultIdempotencyTTL, true},
		{"merge is not idempotent", http.MethodPost, "/api/v1/labels/merge", 0, false},
		{"wrong method", http.MethodGet, "/api/v1/labels/batches", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ttl, ok := routeTTL(tt.method, tt.pattern)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, ttl)
			}
		})
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	req := requestWithPattern(http.MethodPost, batchesRoute, batchesRoute, strings.NewReader(`[]`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, handlerCalled, "handler should not run without idempotency key")
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"batchId":"b1"}}`))
	})

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, batchesRoute, batchesRoute, strings.NewReader(`[{"orderNumber":"1"}]`))
		req.Header.Set(idempotencyHeader, "abc")
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, `{"data":{"batchId":"b1"}}`, strings.TrimSpace(rec.Body.String()))
		if i == 1 {
			assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
		}
	}
	assert.Equal(t, 1, calls)
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, batchesRoute, batchesRoute, strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set(idempotencyHeader, "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := requestWithPattern(http.MethodPost, batchesRoute, batchesRoute, strings.NewReader(`{"foo":"diff"}`))
	replay.Header.Set(idempotencyHeader, "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), decodeErrorCode(t, resp.Body.Bytes()))
}

func TestIdempotencyMiddlewareRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)

	var inner *httptest.ResponseRecorder
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dup := requestWithPattern(http.MethodPost, batchesRoute, batchesRoute, strings.NewReader(`[]`))
		dup.Header.Set(idempotencyHeader, "same")
		inner = httptest.NewRecorder()
		Idempotency(store, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("duplicate must not run while the first request is in flight")
		})).ServeHTTP(inner, dup)
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, batchesRoute, batchesRoute, strings.NewReader(`[]`))
	req.Header.Set(idempotencyHeader, "same")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)

	require.NotNil(t, inner)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), decodeErrorCode(t, inner.Body.Bytes()))
}

func TestIdempotencyMiddlewareReleasesKeyOnServerError(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	for _, want := range []int{http.StatusServiceUnavailable, http.StatusOK} {
		req := requestWithPattern(http.MethodPost, batchesRoute, batchesRoute, strings.NewReader(`[]`))
		req.Header.Set(idempotencyHeader, "retry-me")
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddlewareSkipsUnlistedRoutes(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/labels/merge", "/api/v1/labels/merge", strings.NewReader(`{}`))
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}
