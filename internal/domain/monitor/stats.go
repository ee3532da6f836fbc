package monitor

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Snapshot is one point-in-time view of server health, broadcast to every
// connected monitoring client.
type Snapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	Goroutines     int       `json:"goroutines"`
	HeapAllocBytes uint64    `json:"heap_alloc_bytes"`
	RequestsTotal  uint64    `json:"requests_total"`
	ActiveClients  int       `json:"active_clients"`
	QueueDepth     int       `json:"queue_depth"`
}

// DepthFunc reports the current plugin queue depth.
type DepthFunc func() int

// Collector assembles snapshots from the runtime and a few counters fed by
// the rest of the server.
type Collector struct {
	startedAt  time.Time
	requests   atomic.Uint64
	queueDepth DepthFunc
}

func NewCollector(queueDepth DepthFunc) *Collector {
	return &Collector{
		startedAt:  time.Now(),
		queueDepth: queueDepth,
	}
}

// CountRequest increments the served-request counter. Called from middleware.
func (c *Collector) CountRequest() {
	c.requests.Add(1)
}

func (c *Collector) Snapshot(activeClients int) Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	depth := 0
	if c.queueDepth != nil {
		depth = c.queueDepth()
	}

	return Snapshot{
		Timestamp:      time.Now().UTC(),
		UptimeSeconds:  int64(time.Since(c.startedAt).Seconds()),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		RequestsTotal:  c.requests.Load(),
		ActiveClients:  activeClients,
		QueueDepth:     depth,
	}
}
