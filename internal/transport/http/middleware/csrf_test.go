package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/avereux/salon-auth/internal/infra/config"
	"github.com/avereux/salon-auth/internal/repository"
)

type fakeCSRFStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeCSRFStore() *fakeCSRFStore {
	return &fakeCSRFStore{tokens: make(map[string]string)}
}

func (s *fakeCSRFStore) Store(_ context.Context, sessionID, token string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[sessionID] = token
	return nil
}

func (s *fakeCSRFStore) Fetch(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.tokens[sessionID]; ok {
		return token, nil
	}
	return "", repository.ErrNotFound
}

func (s *fakeCSRFStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
	return nil
}

func csrfRouter(t *testing.T, store *fakeCSRFStore, cfg config.CSRFSettings, sessionID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	if sessionID != "" {
		router.Use(func(c *gin.Context) {
			c.Set(SessionIDKey, sessionID)
			c.Next()
		})
	}
	router.Use(NewCSRF(store, cfg, zaptest.NewLogger(t)).Handler())

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.GET("/resource", ok)
	router.POST("/resource", ok)
	router.POST("/webhooks/stripe", ok)
	return router
}

func TestCSRFSafeMethodIssuesToken(t *testing.T) {
	store := newFakeCSRFStore()
	router := csrfRouter(t, store, config.CSRFSettings{}, "sess-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/resource", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	token := rr.Header().Get("X-CSRF-Token")
	if token == "" {
		t.Fatalf("expected csrf token header on safe method")
	}
	if stored, _ := store.Fetch(context.Background(), "sess-1"); stored != token {
		t.Fatalf("expected issued token persisted for session")
	}

	// A second safe request echoes the same token rather than rotating it.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/resource", nil))
	if got := rr.Header().Get("X-CSRF-Token"); got != token {
		t.Fatalf("expected stable token %q, got %q", token, got)
	}
}

func TestCSRFUnsafeMethodRequiresMatchingToken(t *testing.T) {
	store := newFakeCSRFStore()
	if err := store.Store(context.Background(), "sess-1", "expected-token", 0); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	router := csrfRouter(t, store, config.CSRFSettings{}, "sess-1")

	req := httptest.NewRequest(http.MethodPost, "/resource", nil)
	req.Header.Set("X-CSRF-Token", "wrong-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "INVALID_CSRF_TOKEN" {
		t.Fatalf("expected INVALID_CSRF_TOKEN, got %q", body.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/resource", nil)
	req.Header.Set("X-CSRF-Token", "expected-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected matching token accepted, got %d", rr.Code)
	}

	// Missing token entirely is also rejected.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/resource", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", rr.Code)
	}
}

func TestCSRFHeaderTakesPriorityOverQuery(t *testing.T) {
	store := newFakeCSRFStore()
	if err := store.Store(context.Background(), "sess-1", "expected-token", 0); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	router := csrfRouter(t, store, config.CSRFSettings{}, "sess-1")

	req := httptest.NewRequest(http.MethodPost, "/resource?csrf_token=expected-token", nil)
	req.Header.Set("X-CSRF-Token", "wrong-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected header to win over query, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/resource?csrf_token=expected-token", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected query fallback accepted, got %d", rr.Code)
	}
}

func TestCSRFFormFieldFallback(t *testing.T) {
	store := newFakeCSRFStore()
	if err := store.Store(context.Background(), "sess-1", "expected-token", 0); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	router := csrfRouter(t, store, config.CSRFSettings{}, "sess-1")

	body := strings.NewReader("csrf_token=expected-token")
	req := httptest.NewRequest(http.MethodPost, "/resource", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected form token accepted, got %d", rr.Code)
	}
}

func TestCSRFExcludedPaths(t *testing.T) {
	store := newFakeCSRFStore()
	cfg := config.CSRFSettings{ExcludePaths: []string{"/webhooks/*"}}
	router := csrfRouter(t, store, cfg, "sess-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected excluded path to bypass csrf, got %d", rr.Code)
	}
}

func TestCSRFSessionRequired(t *testing.T) {
	store := newFakeCSRFStore()

	permissive := csrfRouter(t, store, config.CSRFSettings{}, "")
	rr := httptest.NewRecorder()
	permissive.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/resource", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected sessionless request to pass by default, got %d", rr.Code)
	}

	strict := csrfRouter(t, store, config.CSRFSettings{SessionRequired: true}, "")
	rr = httptest.NewRecorder()
	strict.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/resource", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when session is required, got %d", rr.Code)
	}
}
