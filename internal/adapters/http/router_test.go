package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Mode:              "test",
		StaticPath:        t.TempDir(),
		Secret:            "test-secret",
		ReadLimit:         1 << 20,
		PingPeriod:        54 * time.Second,
		PongWait:          60 * time.Second,
		WriteWait:         10 * time.Second,
		SendBuffer:        64,
		MaxRooms:          3,
		RoomIdleTimeout:   time.Hour,
		JanitorInterval:   time.Minute,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		AllowedOrigins:    []string{"http://localhost:3000"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *app.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := app.NewHub(app.NewRoomRegistry(cfg.MaxRooms), app.SimplePolicy{})
	return SetupRouter(ctx, cfg, hub), hub
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateRoom(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantLang string
	}{
		{name: "default language", body: "", wantCode: http.StatusCreated, wantLang: "python"},
		{name: "explicit language", body: `{"language":"typescript"}`, wantCode: http.StatusCreated, wantLang: "typescript"},
		{name: "unsupported language", body: `{"language":"cobol"}`, wantCode: http.StatusBadRequest},
		{name: "broken json", body: `{"language":`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, testConfig(t))
			w := do(r, http.MethodPost, "/api/rooms", tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())

			got := decode(t, w)
			if tt.wantCode != http.StatusCreated {
				assert.NotEmpty(t, got["error"])
				return
			}
			assert.Len(t, got["roomId"], 8)
			assert.Equal(t, tt.wantLang, got["language"])
			assert.NotEmpty(t, got["created_at"])
		})
	}
}

func TestCreateRoomCapacity(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(t))
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/rooms", "").Code)
	}
	w := do(r, http.MethodPost, "/api/rooms", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoomInfoAndStatus(t *testing.T) {
	r, hub := newTestRouter(t, testConfig(t))
	room, err := hub.Rooms.Create("javascript")
	require.NoError(t, err)
	id := string(room.Room().ID)

	w := do(r, http.MethodGet, "/api/rooms/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode(t, w)
	assert.Equal(t, id, info["roomId"])
	assert.Equal(t, "javascript", info["language"])
	assert.Equal(t, "", info["codeContent"])
	assert.EqualValues(t, 0, info["userCount"])

	w = do(r, http.MethodGet, "/api/rooms/"+id+"/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"roomId":"`+id+`","userCount":0,"hasCode":false}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/rooms/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/rooms/missing/status", "").Code)
}

func TestHealth(t *testing.T) {
	r, hub := newTestRouter(t, testConfig(t))
	_, err := hub.Rooms.Create("python")
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","active_rooms":1,"total_connections":0}`, w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(t))
	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
}

func TestCORSAllowList(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimitAPIOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRequests = 2
	r, _ := newTestRouter(t, cfg)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/rooms", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/rooms", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/api/rooms", "").Code)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("a"))

	now = now.Add(2 * time.Minute)
	rl.Prune()
	rl.mu.Lock()
	assert.Empty(t, rl.history)
	rl.mu.Unlock()
}
