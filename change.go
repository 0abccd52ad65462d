package gopcr

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ChangeChannel selects channel n. The selection is updated right away, the
// radio is told on the next transmit turn of the scheduler.
func (s *Scheduler) ChangeChannel(n int) int {
	n = ClampChannel(n)
	s.mu.Lock()
	s.selected = n
	s.pending = append(s.pending, n)
	s.mu.Unlock()
	s.metrics.Selected(n)
	s.emit(Event{Type: EventTypeSelectionChanged, Channel: n})
	return n
}

func (s *Scheduler) setSelected(n int) {
	s.mu.Lock()
	s.selected = ClampChannel(n)
	s.mu.Unlock()
}

// applyChange sends the select-channel command, waits for the ack and then
// asks for the channel info of n. A missing ack is logged and not fatal.
func (s *Scheduler) applyChange(ctx context.Context, n int) error {
	f, err := s.c.Request(ctx, SelectChannel(n), s.cfg.ChangeTimeout)
	switch {
	case err == nil:
		if f.Op() != OpChangeAck {
			s.log.Debug("unexpected reply to change-channel", zap.Stringer("frame", f))
			s.handle(f)
		}
	case IsKind(err, KindTimeout), IsKind(err, KindBufferOverflow):
		if IsKind(err, KindTimeout) {
			s.metrics.Timeout(PhaseRuntime.String())
		}
		s.emit(Event{Type: EventTypeWarning, Channel: n, Details: fmt.Sprintf("change to %03d not acknowledged: %v", n, err)})
		s.c.Abandon()
	default:
		return err
	}
	return s.request(ctx, n)
}
