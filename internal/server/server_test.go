package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/niftybulk/papertrade/internal/config"
	"github.com/niftybulk/papertrade/internal/di"
	"github.com/niftybulk/papertrade/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *di.Container, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{
		DataDir:             t.TempDir(),
		Port:                8001,
		DevMode:             true,
		TickInterval:        time.Second,
		BackendURL:          "http://127.0.0.1:1/api",
		BackendTimeout:      time.Second,
		WalletSyncSchedule:  "@every 5m",
		MaintenanceSchedule: "@hourly",
		Backup:              &config.BackupConfig{},
	}

	container, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	container.SessionStore.Load()

	srv := New(Config{Log: zerolog.Nop(), Config: cfg, Container: container})
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		_ = container.Close()
	})

	return srv, container, ts
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_Health(t *testing.T) {
	_, _, ts := newTestServer(t)

	var body map[string]interface{}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_ModuleRoutesMounted(t *testing.T) {
	_, _, ts := newTestServer(t)

	for _, path := range []string{
		"/api/quotes",
		"/api/quotes/TCS",
		"/api/session",
		"/api/session/capabilities",
		"/api/wishlist",
		"/api/portfolio",
		"/api/trades",
	} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}

	resp, err := http.Get(ts.URL + "/api/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_SystemStatus(t *testing.T) {
	_, _, ts := newTestServer(t)

	var status SystemStatusResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/system/status", &status))

	assert.Equal(t, "healthy", status.Status)
	assert.True(t, status.Database.Healthy)
	assert.Equal(t, 50, status.Simulator.Instruments)
	assert.Equal(t, int64(1000), status.Simulator.IntervalMs)
	assert.False(t, status.Session.Authenticated)
	assert.Equal(t, "guest", status.Session.Role)
}

func TestServer_Jobs(t *testing.T) {
	_, _, ts := newTestServer(t)

	var list struct {
		Jobs []string `json:"jobs"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/system/jobs", &list))
	assert.Equal(t, []string{"maintenance", "wallet_sync"}, list.Jobs)

	resp, err := http.Post(ts.URL+"/api/system/jobs/maintenance", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Signed out: wallet sync is a no-op
	resp, err = http.Post(ts.URL+"/api/system/jobs/wallet_sync", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/system/jobs/backup", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CORSPreflight(t *testing.T) {
	_, _, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/session/user", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestServer_EventsStream(t *testing.T) {
	_, container, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream?types=wallet_updated", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readFrame := func() map[string]interface{} {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				var frame map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &frame))
				return frame
			}
		}
	}

	assert.Equal(t, "connected", readFrame()["type"])
	assert.Equal(t, 1, container.EventBus.SubscriberCount(events.WalletUpdated))
	assert.Zero(t, container.EventBus.SubscriberCount(events.TradeExecuted))

	container.EventManager.EmitTyped("wallet", &events.WalletUpdatedData{Action: "add_funds", Amount: 500, Balance: 10500})

	frame := readFrame()
	assert.Equal(t, "WALLET_UPDATED", frame["type"])
	assert.Equal(t, "wallet", frame["module"])
	data := frame["data"].(map[string]interface{})
	assert.Equal(t, 10500.0, data["balance"])

	cancel()
	assert.Eventually(t, func() bool {
		return container.EventBus.SubscriberCount(events.WalletUpdated) == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServer_EventsStreamRejectsUnknownType(t *testing.T) {
	_, _, ts := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/events/stream?types=NOPE", &body))
	assert.Contains(t, body["error"], "NOPE")
}

func TestParseTypes(t *testing.T) {
	all, err := parseTypes("")
	require.NoError(t, err)
	assert.Equal(t, events.AllTypes(), all)

	types, err := parseTypes(" trade_executed, WALLET_UPDATED ,TRADE_EXECUTED,")
	require.NoError(t, err)
	assert.Equal(t, []events.EventType{events.TradeExecuted, events.WalletUpdated}, types)

	_, err = parseTypes("TRADE_EXECUTED,BOGUS")
	assert.Error(t, err)
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.server.Addr = "127.0.0.1:0"

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	// Give ListenAndServe a moment to bind before shutting down
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
