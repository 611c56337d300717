package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vigil/internal/docstore"
	"vigil/internal/handlers"
	"vigil/internal/identity"
	"vigil/internal/notify"
	"vigil/internal/profile"
	"vigil/internal/reputation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRolesConfig = `{
	"roles": {
		"admin": {"permissions": ["view_profiles", "moderate_users", "add_notes", "view_audit_log"]}
	},
	"users": [
		{"id": "admin-1", "role": "admin", "token": "tok-admin"}
	]
}`

func newTestRouter(t *testing.T) (http.Handler, *docstore.Store) {
	t.Helper()
	dir := t.TempDir()

	store, err := docstore.Open(docstore.Options{Path: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rolesPath := filepath.Join(dir, "roles.json")
	require.NoError(t, os.WriteFile(rolesPath, []byte(testRolesConfig), 0600))
	identityService, err := identity.NewService(rolesPath)
	require.NoError(t, err)

	notices := notify.NewMemorySink(10)
	engine := reputation.NewEngine(store, identityService, notices)
	cache := profile.NewSnapshotCache()
	aggregator := profile.NewAggregator(store, nil, cache)

	h := handlers.NewHandler(handlers.Config{
		Identity:   identityService,
		Engine:     engine,
		Aggregator: aggregator,
		Dispatcher: profile.NewDispatcher(engine, cache),
		Store:      store,
		Notices:    notices,
	})

	router := SetupRouter(Config{
		Handlers: h,
		Identity: identityService,
		Logger:   zerolog.Nop(),
	})
	return router, store
}

func TestRouter_Healthz(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vigil_")
}

func TestRouter_BearerTokenFlow(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, docstore.CollectionUsers, "user-1", docstore.Document{
		"displayName": "Test User",
	}, false))

	t.Run("no token is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile/user-1", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/profile/user-1", nil)
		req.Header.Set("Authorization", "Bearer tok-admin")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("security headers are applied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})
}

func TestRouter_ModActionFlow(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, docstore.CollectionUsers, "user-1", docstore.Document{
		"displayName": "Test User",
	}, false))

	form := url.Values{"code": {"ban7d"}, "user": {"user-1"}, "reason": {"spam"}}
	req := httptest.NewRequest(http.MethodPost, "/mod/action", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer tok-admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := store.Get(ctx, docstore.CollectionUserReputation, "user-1")
	require.NoError(t, err)
	norm := reputation.Normalize("user-1", doc)
	assert.Equal(t, 50, norm.Score)
	assert.True(t, *norm.Restrictions.IsBanned)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/mod/action", nil)
	req.Header.Set("Authorization", "Bearer tok-admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
