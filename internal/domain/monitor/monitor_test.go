package monitor

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestCollector_Snapshot(t *testing.T) {
	collector := NewCollector(func() int { return 3 })
	collector.CountRequest()
	collector.CountRequest()

	snap := collector.Snapshot(2)
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.Equal(t, 2, snap.ActiveClients)
	assert.Equal(t, 3, snap.QueueDepth)
	assert.Positive(t, snap.Goroutines)
	assert.Positive(t, snap.HeapAllocBytes)
}

func TestHub_StreamsSnapshots(t *testing.T) {
	collector := NewCollector(nil)
	hub := NewHub(collector, 20*time.Millisecond, 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(hub)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	defer conn.Close()

	// Initial snapshot on connect, then ticks.
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"goroutines"`)
	}
}

func TestHub_CountsClients(t *testing.T) {
	hub := NewHub(NewCollector(nil), time.Hour, 0, zerolog.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	conn1.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn2.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestClient_ReceivesSnapshotsAndReconnects(t *testing.T) {
	collector := NewCollector(nil)
	hub := NewHub(collector, 15*time.Millisecond, 0, zerolog.Nop())

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	server := httptest.NewServer(hub)
	defer server.Close()

	var mu sync.Mutex
	var received int
	client := NewClient(ClientConfig{
		URL:         wsURL(server),
		BaseBackoff: 10 * time.Millisecond,
		MaxBackoff:  50 * time.Millisecond,
	}, func(Snapshot) {
		mu.Lock()
		received++
		mu.Unlock()
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = client.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received >= 2
	}, 2*time.Second, 10*time.Millisecond)

	// Sever every connection; the client should dial back in and keep
	// receiving snapshots.
	hub.Shutdown()
	hub2 := NewHub(collector, 15*time.Millisecond, 0, zerolog.Nop())
	go hub2.Run(hubCtx)
	server.Config.Handler = hub2

	mu.Lock()
	received = 0
	mu.Unlock()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received >= 2
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop on context cancel")
	}
}

func TestNextDelay_DoublesAndCaps(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	for failures, want := range map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		6: 30 * time.Second,
		9: 30 * time.Second,
	} {
		got := nextDelay(base, max, failures)
		lo := time.Duration(float64(want) * 0.8)
		assert.GreaterOrEqual(t, got, lo, "failures=%d", failures)
		assert.LessOrEqual(t, got, max, "failures=%d", failures)
		if want < max {
			hi := time.Duration(float64(want) * 1.2)
			assert.LessOrEqual(t, got, hi, "failures=%d", failures)
		}
	}
}

func TestNewHub_SendBufferDefaults(t *testing.T) {
	hub := NewHub(NewCollector(nil), time.Hour, 32, zerolog.Nop())
	assert.Equal(t, 32, hub.sendBuffer)

	hub = NewHub(NewCollector(nil), time.Hour, 0, zerolog.Nop())
	assert.Equal(t, defaultSendBuffer, hub.sendBuffer)
}
