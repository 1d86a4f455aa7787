package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halmon/internal/config"
	"halmon/internal/metrics"
	"halmon/internal/models"
	"halmon/internal/services"
)

type fixedSampler struct{ cpu float64 }

func (f fixedSampler) Sample(ctx context.Context) (models.Sample, error) {
	return models.Sample{
		Timestamp: time.Now(),
		CPU:       &models.CPUStatus{UsagePercent: f.cpu},
		Memory:    &models.MemoryStatus{UsagePercent: 40},
		Disk:      &models.DiskStatus{UsagePercent: 50},
	}, nil
}

type testServer struct {
	router  *gin.Engine
	monitor *services.Monitor
	store   *services.AlarmStore
	auth    *services.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := services.NewAlarmStore(services.NewMemoryBackend(), nil)
	monitor := services.NewMonitor(services.MonitorDeps{
		Sampler: fixedSampler{cpu: 95},
		Store:   store,
	}, services.MonitorOptions{SampleInterval: 10 * time.Millisecond, EvaluateInterval: 10 * time.Millisecond})
	t.Cleanup(monitor.Stop)

	auth, err := services.NewAuthService("0123456789abcdef0123456789abcdef", time.Hour, "")
	require.NoError(t, err)
	hub := services.NewAlertHub()
	t.Cleanup(hub.Stop)

	router := NewRouter(config.ServerConfig{RateLimit: 1000, RateBurst: 1000}, RouterDeps{
		Monitor: monitor,
		Store:   store,
		Hub:     hub,
		Auth:    auth,
		Metrics: metrics.New(),
	})
	return &testServer{router: router, monitor: monitor, store: store, auth: auth}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestAlarmRoutes(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/alarms", `{"type":"cpu","threshold":80}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "CPU", body["type"])
	assert.Equal(t, float64(0), body["index"])

	w, body = s.do(t, http.MethodPost, "/api/alarms", `{"type":"CPU","threshold":80}`)
	assert.Equal(t, http.StatusOK, w.Code, "existing pair is not created again")
	assert.Equal(t, float64(0), body["index"])

	w, _ = s.do(t, http.MethodPost, "/api/alarms", `{"type":"cpu","threshold":150}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/alarms", `{"type":"network","threshold":50}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/alarms", `{"type":"cpu"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/alarms", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["alarms"], 1)

	w, body = s.do(t, http.MethodDelete, "/api/alarms/5", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["removed"])
	w, _ = s.do(t, http.MethodDelete, "/api/alarms/first", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodDelete, "/api/alarms/0", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["removed"])
	assert.Equal(t, 0, s.store.Len())
}

func TestMonitorRoutesWhenStopped(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/api/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["active"])
	assert.Nil(t, body["sample"])

	_, body = s.do(t, http.MethodGet, "/api/alarms/triggered", "")
	assert.Equal(t, false, body["active"])
	assert.Empty(t, body["triggered"])

	_, body = s.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, false, body["active"])
	assert.Nil(t, body["latest"])

	w, _ = s.do(t, http.MethodGet, "/api/history?metric=swap", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/history?n=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonitorRoutesLifecycle(t *testing.T) {
	s := newTestServer(t)
	_, err := s.store.Add("cpu", 70)
	require.NoError(t, err)
	_, err = s.store.Add("cpu", 90)
	require.NoError(t, err)

	_, body := s.do(t, http.MethodPost, "/api/monitoring/start", "")
	assert.Equal(t, true, body["active"])

	require.Eventually(t, func() bool {
		_, body := s.do(t, http.MethodGet, "/api/live", "")
		return body["sample"] != nil
	}, 2*time.Second, 10*time.Millisecond)

	_, body = s.do(t, http.MethodGet, "/api/alarms/triggered", "")
	assert.Len(t, body["triggered"], 2)

	_, body = s.do(t, http.MethodGet, "/api/history?metric=cpu&n=1", "")
	assert.Equal(t, "CPU", body["metric"])
	assert.Len(t, body["data"], 1)

	_, body = s.do(t, http.MethodPost, "/api/monitoring/stop", "")
	assert.Equal(t, false, body["active"])
	assert.False(t, s.monitor.Active())
}

func TestPrometheusAndHealth(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w, _ = s.do(t, http.MethodGet, "/prometheus", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `halmon_http_requests_total{endpoint="/healthz",method="GET",status="200"} 1`)
}

func TestWebSocketAuth(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token=aaaaaaaaaa.bbbbbbbbbb.cccccccccc", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, _, err := s.auth.GenerateToken("web-01")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var greeting services.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "status", greeting.Type)
}
