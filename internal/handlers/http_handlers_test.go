package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"giveaway/internal/services"
	"giveaway/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, token string, limiter *RateLimiter) (*gin.Engine, *services.LotteryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fs, err := store.NewFileStore(filepath.Join(t.TempDir(), "giveaway.json"))
	require.NoError(t, err)

	svc := services.NewLotteryService(context.Background(), fs, services.WithStoreTimeout(time.Second))
	t.Cleanup(svc.Close)

	r := gin.New()
	NewHTTPHandler(svc, token, limiter).RegisterRoutes(r)
	return r, svc
}

func do(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
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

const startBody = `{"duration": 10, "channel": "chan", "winners": 2, "prize": "Mug", "multiplierRole": "vip", "multiplierWeight": 3}`

func TestKeepAliveAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, "", nil)

	w := do(r, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bot is alive!", w.Body.String())

	w = do(r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "giveaway_http_requests_total")
}

func TestCommandLifecycle(t *testing.T) {
	r, _ := newTestRouter(t, "", nil)

	w := do(r, http.MethodPost, "/commands/start", startBody, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	started := decode(t, w)
	assert.Equal(t, "chan", started["scopeId"])
	assert.NotEmpty(t, started["id"])

	w = do(r, http.MethodPost, "/commands/start", startBody, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/commands/reroll", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodPost, "/events/message", `{"channelId": "chan", "authorId": "u1", "roles": ["vip"]}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["entered"])

	w = do(r, http.MethodPost, "/events/message", `{"channelId": "chan", "authorId": "u1"}`, "")
	assert.Equal(t, false, decode(t, w)["entered"])

	w = do(r, http.MethodPost, "/events/message", `{"channelId": "other", "authorId": "u2"}`, "")
	assert.Equal(t, false, decode(t, w)["entered"])

	w = do(r, http.MethodPost, "/events/message", `{"channelId": "chan", "authorId": "b1", "bot": true}`, "")
	assert.Equal(t, false, decode(t, w)["entered"])

	w = do(r, http.MethodGet, "/commands/info", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode(t, w)
	assert.EqualValues(t, 1, info["participants"])
	assert.EqualValues(t, 3, info["entries"])
	assert.InDelta(t, 600, info["remainingSeconds"], 5)

	w = do(r, http.MethodPost, "/commands/reroll", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", decode(t, w)["winner"])

	w = do(r, http.MethodPost, "/commands/end", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	ended := decode(t, w)
	assert.Equal(t, []any{"u1"}, ended["winners"])
	assert.Equal(t, "manual", ended["reason"])

	w = do(r, http.MethodPost, "/commands/end", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(r, http.MethodGet, "/commands/info", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(r, http.MethodPost, "/commands/reroll", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartValidation(t *testing.T) {
	r, svc := newTestRouter(t, "", nil)

	for name, body := range map[string]string{
		"not json":        `{`,
		"missing channel": `{"duration": 5, "winners": 1, "prize": "x"}`,
		"zero duration":   `{"duration": 0, "channel": "c", "winners": 1, "prize": "x"}`,
		"zero winners":    `{"duration": 5, "channel": "c", "winners": 0, "prize": "x"}`,
		"blank channel":   `{"duration": 5, "channel": "  ", "winners": 1, "prize": "x"}`,
		"huge multiplier": `{"duration": 5, "channel": "c", "winners": 1, "prize": "x", "multiplierRole": "vip", "multiplierWeight": 4611686018427387905}`,
		"over max weight": `{"duration": 5, "channel": "c", "winners": 1, "prize": "x", "multiplierRole": "vip", "multiplierWeight": 1001}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/commands/start", body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	_, err := svc.Info()
	assert.ErrorIs(t, err, services.ErrNothingRunning)
}

func TestAuthMiddleware(t *testing.T) {
	r, _ := newTestRouter(t, "s3cret", nil)

	w := do(r, http.MethodGet, "/commands/info", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/commands/info", "", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/events/message", `{"channelId": "c", "authorId": "u"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/commands/info", "", "s3cret")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	r, _ := newTestRouter(t, "", limiter)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/commands/info", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/commands/info", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/commands/info", "", "").Code)

	// keep-alive is not limited
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", "", "").Code)
	assert.Equal(t, 1, limiter.Size())
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	limiter.getLimiter("a")
	limiter.Cleanup()
	assert.Equal(t, 1, limiter.Size(), "small maps are kept")

	for i := 0; i <= maxLimiters; i++ {
		limiter.getLimiter(strconv.Itoa(i))
	}
	limiter.Cleanup()
	assert.Equal(t, 0, limiter.Size())
}
