package gopcr

import (
	"fmt"
	"sync/atomic"
)

type Stats struct {
	Rows          uint64
	Skipped       uint64
	Discarded     uint64
	DroppedBytes  uint64
	Timeouts      uint64
	Errors        uint64
	DroppedEvents uint64
}

func (st Stats) String() string {
	return fmt.Sprintf("rows: %d skipped: %d discarded: %d dropped bytes: %d timeouts: %d errors: %d dropped events: %d",
		st.Rows, st.Skipped, st.Discarded, st.DroppedBytes, st.Timeouts, st.Errors, st.DroppedEvents)
}

type counters struct {
	rows, skipped, discarded, droppedBytes, timeouts, errors, droppedEvents atomic.Uint64
}

func (c *counters) count(e Event) {
	switch e.Type {
	case EventTypeRowUpdated:
		c.rows.Add(1)
	case EventTypeChannelSkipped:
		c.skipped.Add(1)
	case EventTypeFrameDiscarded:
		c.discarded.Add(1)
	case EventTypeTimeout:
		c.timeouts.Add(1)
	case EventTypeError:
		c.errors.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Rows:          c.rows.Load(),
		Skipped:       c.skipped.Load(),
		Discarded:     c.discarded.Load(),
		DroppedBytes:  c.droppedBytes.Load(),
		Timeouts:      c.timeouts.Load(),
		Errors:        c.errors.Load(),
		DroppedEvents: c.droppedEvents.Load(),
	}
}
