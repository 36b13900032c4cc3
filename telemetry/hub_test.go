package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrader/account"
	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/rustyeddy/papertrader/paper"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) paper.Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var s paper.Snapshot
	require.NoError(t, json.Unmarshal(msg, &s))
	return s
}

func TestPumpBroadcastsSnapshots(t *testing.T) {
	hub := NewHub(logging.Discard())
	current := paper.Snapshot{Version: 1, Balance: account.Balance{Cash: 10}}
	srv := httptest.NewServer(Handler(hub, func() paper.Snapshot { return current }))
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)

	snaps := make(chan paper.Snapshot, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Pump(ctx, snaps) }()

	snaps <- paper.Snapshot{Version: 2, Balance: account.Balance{Cash: 100}}
	s := readSnapshot(t, conn)
	assert.Equal(t, uint64(2), s.Version)
	assert.Equal(t, 100.0, s.Balance.Cash)

	// a late joiner gets the latest snapshot straight away
	late := dial(t, srv)
	s = readSnapshot(t, late)
	assert.Equal(t, uint64(2), s.Version)

	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, hub.Clients())
}

func TestSnapshotEndpoint(t *testing.T) {
	hub := NewHub(logging.Discard())
	srv := httptest.NewServer(Handler(hub, func() paper.Snapshot {
		return paper.Snapshot{Version: 7, AutoTrading: true}
	}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var s paper.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, uint64(7), s.Version)
	assert.True(t, s.AutoTrading)

	resp2, err := http.Post(srv.URL+"/snapshot", "application/json", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub(logging.Discard())
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, time.Millisecond)
}

func TestOriginCheck(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		ok      bool
	}{
		{"same origin only rejects foreign page", nil, "http://evil.example", false},
		{"listed origin", []string{"http://dash.example"}, "http://dash.example", true},
		{"unlisted origin", []string{"http://dash.example"}, "http://evil.example", false},
		{"wildcard", []string{"*"}, "http://anything.example", true},
		{"no origin header", []string{"http://dash.example"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(logging.Discard(), tt.allowed...)
			srv := httptest.NewServer(hub)
			t.Cleanup(srv.Close)

			hdr := http.Header{}
			if tt.origin != "" {
				hdr.Set("Origin", tt.origin)
			}
			url := "ws" + strings.TrimPrefix(srv.URL, "http")
			conn, resp, err := websocket.DefaultDialer.Dial(url, hdr)
			if tt.ok {
				require.NoError(t, err)
				_ = conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
