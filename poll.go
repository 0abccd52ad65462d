package gopcr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roffe/gopcr/pkg/metrics"
	"go.uber.org/zap"
)

// MaxTopChannel is the highest window top that still keeps a full page inside
// the channel range.
const MaxTopChannel = MaxChannel + 1 - PageSize

type PollState int

const (
	StateIdle PollState = iota
	StateAwaiting
)

func (s PollState) String() string {
	if s == StateAwaiting {
		return "awaiting"
	}
	return "idle"
}

// Window is a snapshot of the poll window and the selection.
type Window struct {
	Top      int
	Next     int
	Selected int
	State    PollState
	Awaiting int
}

// Scheduler keeps the visible page of channels fresh by requesting channel
// info for one slot at a time, round robin. It is also the only place a
// channel change is transmitted from, so both share the correlator's single
// turn.
//
// Tick must only be called from one goroutine. ChangeChannel and ScrollWindow
// may be called from anywhere.
type Scheduler struct {
	c       *Correlator
	cfg     *Config
	log     *zap.Logger
	metrics *metrics.Metrics
	emit    func(Event)

	mu       sync.Mutex
	top      int
	next     int
	selected int
	pending  []int

	state    PollState
	awaiting int
	since    time.Time
}

func NewScheduler(c *Correlator, cfg *Config, log *zap.Logger, m *metrics.Metrics, emit func(Event)) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if emit == nil {
		emit = func(Event) {}
	}
	return &Scheduler{
		c:       c,
		cfg:     cfg.withDefaults(),
		log:     log,
		metrics: m,
		emit:    emit,
	}
}

func (s *Scheduler) Window() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Window{Top: s.top, Next: s.next, Selected: s.selected, State: s.state, Awaiting: s.awaiting}
}

func (s *Scheduler) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// ScrollWindow moves the window so it starts at top and restarts the round
// robin there.
func (s *Scheduler) ScrollWindow(top int) int {
	if top < MinChannel {
		top = MinChannel
	}
	if top > MaxTopChannel {
		top = MaxTopChannel
	}
	s.mu.Lock()
	s.top = top
	s.next = top
	s.mu.Unlock()
	return top
}

// Expect puts the scheduler in the awaiting state for a channel-info request
// for ch. When ch is the next slot of the round robin, the round robin moves
// past it.
func (s *Scheduler) Expect(ch int) {
	ch = ClampChannel(ch)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAwaiting
	s.awaiting = ch
	s.since = time.Now()
	if ch == s.next {
		s.next = s.wrap(ch + 1)
	}
}

// Tick runs one step of the state machine. Only transport failures and
// context cancellation are returned, everything else is reported as events.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == StateIdle {
		return s.transmit(ctx)
	}

	f, err := s.c.AwaitResponse(ctx, s.cfg.PollTimeout)
	if err != nil {
		switch {
		case IsKind(err, KindTimeout):
			return s.checkTimeout(ctx)
		case IsKind(err, KindBufferOverflow):
			s.mu.Lock()
			ch := s.awaiting
			s.mu.Unlock()
			s.emit(Event{Type: EventTypeWarning, Channel: ch, Details: err.Error()})
			s.c.Abandon()
			s.idle()
			return s.transmit(ctx)
		}
		return err
	}
	s.handle(f)
	s.idle()
	return s.transmit(ctx)
}

func (s *Scheduler) checkTimeout(ctx context.Context) error {
	s.mu.Lock()
	ch := s.awaiting
	expired := time.Since(s.since) >= s.cfg.ResponseTimeout
	s.mu.Unlock()
	if !expired {
		return nil
	}
	s.metrics.Timeout(PhaseRuntime.String())
	s.emit(Event{Type: EventTypeTimeout, Channel: ch, Details: fmt.Sprintf("no reply for channel %03d", ch)})
	s.c.Abandon()
	s.idle()
	return s.transmit(ctx)
}

// handle applies one received frame to the view.
func (s *Scheduler) handle(f Frame) {
	if !IsChannelInfo(f) {
		s.metrics.Frame("invalid")
		s.emit(Event{Type: EventTypeFrameDiscarded, Details: fmt.Sprintf("unexpected frame: %s", f)})
		return
	}
	s.metrics.Frame("ok")
	rec, ref, err := DecodeChannelInfo(f)
	if err != nil {
		s.metrics.Skipped()
		ch := -1
		if rec != nil {
			ch = rec.Number
		}
		s.emit(Event{Type: EventTypeChannelSkipped, Channel: ch, Details: err.Error()})
		return
	}
	if ChannelExists(rec.Number, ref) {
		s.metrics.Row()
		s.emit(Event{Type: EventTypeRowUpdated, Channel: rec.Number, Record: rec})
	} else {
		s.metrics.Skipped()
		s.emit(Event{Type: EventTypeChannelSkipped, Channel: rec.Number, Details: fmt.Sprintf("comparison byte %d", ref)})
	}
	if s.Selected() == rec.Number {
		s.emit(Event{Type: EventTypeSelectionChanged, Channel: rec.Number})
	}
}

func (s *Scheduler) idle() {
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
}

// wrap keeps ch inside the window, anything outside restarts at the top.
// Callers hold s.mu.
func (s *Scheduler) wrap(ch int) int {
	if ch < s.top || ch >= s.top+PageSize {
		return s.top
	}
	return ch
}

// transmit sends whatever goes next: a queued channel change, otherwise the
// channel-info request for the next slot.
func (s *Scheduler) transmit(ctx context.Context) error {
	s.mu.Lock()
	var change *int
	if len(s.pending) > 0 {
		n := s.pending[0]
		s.pending = s.pending[1:]
		change = &n
	}
	ch := s.next
	s.mu.Unlock()

	if change != nil {
		return s.applyChange(ctx, *change)
	}
	return s.request(ctx, ch)
}

func (s *Scheduler) request(ctx context.Context, ch int) error {
	if err := s.c.Send(ctx, RequestChannelInfo(ch)); err != nil {
		return err
	}
	s.Expect(ch)
	return nil
}
