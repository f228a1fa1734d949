package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: map[string][]byte{}} }

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	b, ok := m.entries[key]
	return b, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, body []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), body...)
	return nil
}

func (m *memoryCache) Purge(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

func serveCached(t *testing.T, e *echo.Echo, mw echo.MiddlewareFunc, role string, calls *int) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/users?search=ann", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextRole, role)

	h := mw(func(c echo.Context) error {
		*calls++
		return c.JSON(http.StatusOK, map[string]int{"n": *calls})
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestResponseCache_HitAfterMiss(t *testing.T) {
	e := echo.New()
	store := newMemoryCache()
	mw := ResponseCache(store, "users", time.Minute, zerolog.Nop())
	calls := 0

	first := serveCached(t, e, mw, "ADMIN", &calls)
	second := serveCached(t, e, mw, "ADMIN", &calls)

	if calls != 1 {
		t.Fatalf("expected the handler to run once, ran %d times", calls)
	}
	if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("unexpected cache headers %q / %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("cached body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
}

func TestResponseCache_RolesDoNotShare(t *testing.T) {
	e := echo.New()
	store := newMemoryCache()
	mw := ResponseCache(store, "users", time.Minute, zerolog.Nop())
	calls := 0

	serveCached(t, e, mw, "ADMIN", &calls)
	serveCached(t, e, mw, "SUPER_ADMIN", &calls)

	if calls != 2 {
		t.Fatalf("expected separate entries per role, handler ran %d times", calls)
	}
}

func TestResponseCache_StoreErrorServesUncached(t *testing.T) {
	e := echo.New()
	store := newMemoryCache()
	store.getErr = errors.New("redis down")
	mw := ResponseCache(store, "users", time.Minute, zerolog.Nop())
	calls := 0

	rec := serveCached(t, e, mw, "ADMIN", &calls)
	if calls != 1 || rec.Code != http.StatusOK {
		t.Fatalf("expected uncached success, calls=%d code=%d", calls, rec.Code)
	}
}

func TestResponseCache_DisabledWithZeroTTL(t *testing.T) {
	e := echo.New()
	store := newMemoryCache()
	mw := ResponseCache(store, "users", 0, zerolog.Nop())
	calls := 0

	serveCached(t, e, mw, "ADMIN", &calls)
	serveCached(t, e, mw, "ADMIN", &calls)
	if calls != 2 || len(store.entries) != 0 {
		t.Fatalf("zero ttl must bypass the cache")
	}
}

func TestPurgeCache(t *testing.T) {
	e := echo.New()
	store := newMemoryCache()
	store.entries["users:ADMIN:/v1/users"] = []byte("{}")
	store.entries["other:ADMIN:/x"] = []byte("{}")

	req := httptest.NewRequest(http.MethodDelete, "/v1/users/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := PurgeCache(store, "users", zerolog.Nop())(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if _, ok := store.entries["users:ADMIN:/v1/users"]; ok {
		t.Fatalf("users entries should be purged")
	}
	if _, ok := store.entries["other:ADMIN:/x"]; !ok {
		t.Fatalf("other scopes must survive")
	}
}
