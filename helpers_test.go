package gopcr

import (
	"sync"
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		ChunkSize:       96,
		ReadTimeout:     2 * time.Millisecond,
		RetryStep:       5 * time.Millisecond,
		InitTimeout:     200 * time.Millisecond,
		ChangeTimeout:   100 * time.Millisecond,
		ResponseTimeout: 100 * time.Millisecond,
		TickInterval:    time.Millisecond,
	}
}

// countingAdapter counts reads on the wrapped adapter.
type countingAdapter struct {
	Adapter
	mu    sync.Mutex
	reads int
}

func (c *countingAdapter) Read(p []byte, timeout time.Duration) (int, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Adapter.Read(p, timeout)
}

func (c *countingAdapter) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) emit(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func newTestVirtual(t *testing.T) *Virtual {
	t.Helper()
	v := NewVirtual(nil, DemoLineup())
	t.Cleanup(func() { v.Close() })
	return v
}

func newTestCorrelator(a Adapter, cfg *Config) *Correlator {
	cfg = cfg.withDefaults()
	return NewCorrelator(a, NewReassembler(cfg.BufferCapacity), cfg, nil, nil)
}

// sentChannelInfo returns the channel byte of every channel-info request
// written to v.
func sentChannelInfo(v *Virtual) []int {
	var out []int
	for _, f := range v.Written() {
		if f.Op() == CmdChannelInfo.Op {
			out = append(out, int(f[6]))
		}
	}
	return out
}

func sentOps(v *Virtual) []byte {
	var out []byte
	for _, f := range v.Written() {
		out = append(out, f.Op())
	}
	return out
}
