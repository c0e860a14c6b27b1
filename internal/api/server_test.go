package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nookapp/nook-server/internal/auth"
	"github.com/nookapp/nook-server/internal/catalog"
	"github.com/nookapp/nook-server/internal/media/images"
	"github.com/nookapp/nook-server/internal/ratelimit"
	"github.com/nookapp/nook-server/internal/search"
	"github.com/nookapp/nook-server/internal/service"
	"github.com/nookapp/nook-server/internal/session"
	"github.com/nookapp/nook-server/internal/sse"
	"github.com/nookapp/nook-server/internal/store"
	"github.com/nookapp/nook-server/internal/store/sqlite"
)

// testServer wires a full Server over a real SQLite store and search
// index in temp dirs. catalogURL points handlers at a fake Google
// Books endpoint when one is provided.
type testServer struct {
	server *Server
	store  *sqlite.Store
	ts     *httptest.Server
}

func setupTestServer(t *testing.T, catalogURL string) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "nook.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hub := store.NewProfileHub()
	st.SetProfileEmitter(hub)

	tokens, err := auth.NewTokenService(testKeyHex(), 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	loginLimiter := ratelimit.New(1000, 1000)
	resendLimiter := ratelimit.New(1000, 1000)
	t.Cleanup(loginLimiter.Stop)
	t.Cleanup(resendLimiter.Stop)

	storage, err := images.NewStorage(filepath.Join(dir, "media"))
	require.NoError(t, err)
	processor := images.NewProcessor(storage, logger)

	index, err := search.NewShelfIndex(search.Options{DataPath: filepath.Join(dir, "index"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	provisioner := session.NewProvisioner(st, logger)

	authService := service.NewAuthService(st, tokens, loginLimiter, resendLimiter, logger)
	profileService := service.NewProfileService(st, provisioner, processor, logger)
	libraryService := service.NewLibraryService(st, index, logger)
	sessionService := service.NewSessionService(st, logger)

	catalogClient := catalog.NewClient(catalog.Config{BaseURL: catalogURL, Timeout: 2 * time.Second}, logger)

	newStream := func(userID, route string) *sse.Stream {
		return sse.NewStream(sse.StreamOptions{
			Route:       route,
			Identity:    service.NewIdentityConn(st, userID, logger),
			Profiles:    service.NewProfileFeed(st, hub, logger),
			Provisioner: provisioner,
			Logger:      logger,
		})
	}
	verifyUser := func(r *http.Request) string {
		token, ok := bearerToken(r)
		if !ok {
			return ""
		}
		user, _, err := authService.VerifyAccessToken(r.Context(), token)
		if err != nil {
			return ""
		}
		return user.ID
	}
	streamHandler := sse.NewHandler(newStream, verifyUser, logger)

	srv := NewServer(authService, profileService, libraryService, sessionService, catalogClient, streamHandler, logger)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testServer{server: srv, store: st, ts: ts}
}

func testKeyHex() string {
	key := ""
	for range 32 {
		key += "ab"
	}
	return key
}

// do issues a JSON request against the test server.
func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.MarshalWrite(&buf, body))
	}

	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// decodeBody unmarshals a response body into a generic map.
func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.UnmarshalRead(resp.Body, &out))
	return out
}

// registerVerified registers a user, marks the email verified directly
// in the store, logs in, and returns the access token and user ID.
func (s *testServer) registerVerified(t *testing.T, email string) (token, userID string) {
	t.Helper()
	ctx := context.Background()

	resp := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	user, err := s.store.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	user.MarkVerified()
	require.NoError(t, s.store.UpdateUser(ctx, user))

	login := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, login.StatusCode)

	body := decodeBody(t, login)
	data := body["data"].(map[string]any)
	return data["access_token"].(string), user.ID
}

func TestHealthCheck(t *testing.T) {
	s := setupTestServer(t, "")

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, "healthy", data["status"])
}

func TestAuthFlow(t *testing.T) {
	s := setupTestServer(t, "")

	t.Run("register", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"email":    "reader@example.com",
			"password": "correct-horse-battery",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		data := body["data"].(map[string]any)
		assert.NotEmpty(t, data["user_id"])
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"email":    "reader@example.com",
			"password": "correct-horse-battery",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("login unverified still succeeds", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "reader@example.com",
			"password": "correct-horse-battery",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		data := body["data"].(map[string]any)
		assert.NotEmpty(t, data["access_token"])
		assert.NotEmpty(t, data["refresh_token"])

		user := data["user"].(map[string]any)
		assert.Equal(t, false, user["email_verified"])
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "reader@example.com",
			"password": "not-the-password",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, s.ts.URL+"/api/v1/auth/login", bytes.NewBufferString("{"))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRefreshAndLogout(t *testing.T) {
	s := setupTestServer(t, "")
	s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "cycle@example.com",
		"password": "correct-horse-battery",
	}).Body.Close()

	login := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "cycle@example.com",
		"password": "correct-horse-battery",
	})
	data := decodeBody(t, login)["data"].(map[string]any)
	refreshToken := data["refresh_token"].(string)

	t.Run("refresh rotates the token", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
			"refresh_token": refreshToken,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		rotated := decodeBody(t, resp)["data"].(map[string]any)
		newToken := rotated["refresh_token"].(string)
		assert.NotEqual(t, refreshToken, newToken)

		// The old token is dead after rotation.
		old := s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
			"refresh_token": refreshToken,
		})
		defer old.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, old.StatusCode)

		refreshToken = newToken
	})

	t.Run("logout is idempotent", func(t *testing.T) {
		for range 2 {
			resp := s.do(t, http.MethodPost, "/api/v1/auth/logout", "", map[string]string{
				"refresh_token": refreshToken,
			})
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}
	})
}

func TestCheckVerification(t *testing.T) {
	s := setupTestServer(t, "")
	token, _ := s.registerVerified(t, "verified@example.com")

	t.Run("requires auth", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/auth/check-verification", "", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("reports verified", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/auth/check-verification", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data := decodeBody(t, resp)["data"].(map[string]any)
		assert.Equal(t, true, data["verified"])
	})
}

func TestResendVerification_NoAccountLeak(t *testing.T) {
	s := setupTestServer(t, "")

	known := s.do(t, http.MethodPost, "/api/v1/auth/resend-verification", "", map[string]string{
		"email": "nobody@example.com",
	})
	defer known.Body.Close()
	assert.Equal(t, http.StatusOK, known.StatusCode)
}
