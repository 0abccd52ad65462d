package gopcr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roffe/gopcr/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Session owns everything needed to talk to one radio: the transport, the
// receive buffer, the request turn and the poll window. Nothing in it is
// global.
type Session struct {
	ID uuid.UUID

	cfg     *Config
	adapter Adapter
	rs      *Reassembler
	corr    *Correlator
	sched   *Scheduler
	log     *zap.Logger
	metrics *metrics.Metrics
	events  chan Event
	stats   counters

	initialTop      int
	initialSelected int

	warn rate.Sometimes

	mu    sync.Mutex
	radio *RadioInfo

	loop      sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(adapter Adapter, opts ...Opts) (*Session, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}
	s := &Session{
		ID:      uuid.New(),
		cfg:     DefaultConfig(),
		adapter: adapter,
		log:     zap.NewNop(),
		done:    make(chan struct{}),
		warn:    rate.Sometimes{First: 5, Interval: 5 * time.Second},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.log = s.log.With(zap.String("session", s.ID.String()), zap.String("adapter", adapter.Name()))
	s.events = make(chan Event, s.cfg.EventBuffer)

	s.rs = NewReassembler(s.cfg.BufferCapacity)
	s.rs.OnDiscard = s.onDiscard
	s.corr = NewCorrelator(adapter, s.rs, s.cfg, s.log, s.metrics)
	s.sched = NewScheduler(s.corr, s.cfg, s.log, s.metrics, s.emit)
	s.sched.ScrollWindow(s.initialTop)
	s.sched.setSelected(s.initialSelected)
	return s, nil
}

// Open opens the transport.
func (s *Session) Open(ctx context.Context) error {
	if s.closed() {
		return ErrClosed
	}
	if err := s.adapter.Open(ctx); err != nil {
		return fmt.Errorf("open %s: %w", s.adapter.Name(), err)
	}
	s.log.Info("transport open")
	return nil
}

// Initialize runs the startup handshake. The reply to its final channel-info
// request is left for Run.
func (s *Session) Initialize(ctx context.Context) (*RadioInfo, error) {
	first := s.sched.Window().Next
	seq := NewSequencer(s.corr, s.cfg, s.log, s.emit)
	start := time.Now()
	info, err := seq.Run(ctx, InitSequence(first))
	if err != nil {
		if IsKind(err, KindTimeout) {
			s.metrics.Timeout(PhaseInit.String())
		}
		s.emit(Event{Type: EventTypeError, Details: err.Error()})
		s.log.Error("initialization failed", zap.Error(err))
		return info, err
	}
	s.sched.Expect(first)
	s.mu.Lock()
	s.radio = info
	s.mu.Unlock()
	s.log.Info("radio initialized", zap.String("radio_id", info.ID), zap.Duration("took", time.Since(start)))
	s.emit(Event{Type: EventTypeInfo, Details: "radio id " + info.ID})
	return info, nil
}

// RadioID returns the id learned during Initialize.
func (s *Session) RadioID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.radio == nil {
		return ""
	}
	return s.radio.ID
}

// Run drives the scheduler until ctx is cancelled, Close is called or a fatal
// error occurs. Recoverable errors are reported as warnings.
func (s *Session) Run(ctx context.Context) error {
	s.loop.Lock()
	defer s.loop.Unlock()
	if s.closed() {
		return ErrClosed
	}
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	s.log.Debug("poll loop started", zap.Duration("tick", s.cfg.TickInterval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-ticker.C:
		}
		err := s.sched.Tick(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil || s.closed() {
			return nil
		}
		if !IsRecoverable(err) {
			s.emit(Event{Type: EventTypeError, Details: err.Error()})
			s.log.Error("poll loop stopped", zap.Error(err))
			return err
		}
		s.warnf("poll: %v", err)
	}
}

func (s *Session) ChangeChannel(n int) int {
	return s.sched.ChangeChannel(n)
}

func (s *Session) ScrollWindow(top int) int {
	return s.sched.ScrollWindow(top)
}

func (s *Session) Window() Window {
	return s.sched.Window()
}

func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Stats() Stats {
	return s.stats.snapshot()
}

// Tune selects channel n and returns its channel info, without the poll loop.
// It must not be used while Run is active.
func (s *Session) Tune(ctx context.Context, n int) (*ChannelRecord, error) {
	n = ClampChannel(n)
	s.settle(ctx)
	if _, err := s.corr.Request(ctx, SelectChannel(n), s.cfg.ChangeTimeout); err != nil {
		return nil, err
	}
	s.sched.setSelected(n)
	s.metrics.Selected(n)
	s.emit(Event{Type: EventTypeSelectionChanged, Channel: n})

	return s.ChannelInfo(ctx, n)
}

// ChannelInfo asks for the channel info of n without tuning to it. It must not
// be used while Run is active.
func (s *Session) ChannelInfo(ctx context.Context, n int) (*ChannelRecord, error) {
	s.settle(ctx)
	f, err := s.corr.Request(ctx, RequestChannelInfo(n), s.cfg.ResponseTimeout)
	if err != nil {
		if IsKind(err, KindTimeout) {
			s.corr.Abandon()
		}
		return nil, err
	}
	rec, ref, err := DecodeChannelInfo(f)
	if err != nil {
		return rec, err
	}
	if !ChannelExists(rec.Number, ref) {
		return rec, &Error{Kind: KindChannelUnknown, Op: "channel info", Err: fmt.Errorf("channel %03d not in lineup", rec.Number)}
	}
	return rec, nil
}

// Scan requests channel info for every channel from..to inclusive and returns
// the ones that exist. Timeouts and unknown channels are skipped. progress is
// called once per channel.
func (s *Session) Scan(ctx context.Context, from, to int, progress func(ch int)) ([]*ChannelRecord, error) {
	from, to = ClampChannel(from), ClampChannel(to)
	var out []*ChannelRecord
	for ch := from; ch <= to; ch++ {
		rec, err := s.ChannelInfo(ctx, ch)
		if progress != nil {
			progress(ch)
		}
		switch {
		case err == nil:
			s.metrics.Row()
			out = append(out, rec)
		case IsKind(err, KindTimeout), IsKind(err, KindChannelUnknown), IsKind(err, KindMalformedFrame), IsKind(err, KindBufferOverflow):
			s.log.Debug("scan skip", zap.Int("channel", ch), zap.Error(err))
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
		default:
			return out, err
		}
	}
	return out, nil
}

// PowerOff tells the radio to shut down and waits for its goodbye.
func (s *Session) PowerOff(ctx context.Context) error {
	s.settle(ctx)
	f, err := s.corr.Request(ctx, CmdPowerOff, s.cfg.InitTimeout)
	if err != nil {
		return err
	}
	if f.Op() != OpGoodbye {
		return &Error{Kind: KindMalformedFrame, Op: "power off", Err: fmt.Errorf("unexpected reply: %s", f)}
	}
	s.log.Info("radio powered off")
	return nil
}

func (s *Session) SignalQuality(ctx context.Context) (*SignalStatus, error) {
	s.settle(ctx)
	f, err := s.corr.Request(ctx, CmdSignal, s.cfg.ResponseTimeout)
	if err != nil {
		return nil, err
	}
	return DecodeSignal(f)
}

// settle consumes the reply to a request nobody waited for, such as the last
// step of the handshake, so a one-shot command can take the turn.
func (s *Session) settle(ctx context.Context) {
	if !s.corr.Outstanding() {
		return
	}
	if f, err := s.corr.AwaitResponse(ctx, s.cfg.ResponseTimeout); err == nil {
		s.log.Debug("settled", zap.Stringer("frame", f))
	}
	s.corr.Abandon()
}

// Close stops the poll loop, flushes the receive buffer and closes the
// transport. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		// wait for an active Run to notice
		s.loop.Lock()
		dropped := s.corr.Flush()
		s.loop.Unlock()
		if dropped > 0 {
			s.log.Debug("flushed receive buffer", zap.Int("bytes", dropped))
		}
		err = s.adapter.Close()
		s.log.Info("session closed", zap.Stringer("stats", s.stats.snapshot()))
	})
	return err
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) emit(e Event) {
	s.stats.count(e)
	select {
	case s.events <- e:
	default:
		s.stats.droppedEvents.Add(1)
		s.warnf("%v: %s", ErrEventChanFull, e)
	}
}

func (s *Session) onDiscard(n int, reason string) {
	s.stats.droppedBytes.Add(uint64(n))
	s.metrics.Discarded(n, reason)
	s.warnf("discarded %d bytes: %s", n, reason)
}

// warnf logs at warn level, throttled.
func (s *Session) warnf(format string, args ...any) {
	s.warn.Do(func() {
		s.log.Warn(fmt.Sprintf(format, args...))
	})
}

// IsFatal reports whether err should end the process.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !IsRecoverable(err)
}
