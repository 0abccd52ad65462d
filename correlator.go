package gopcr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roffe/gopcr/pkg/metrics"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// ErrRequestOutstanding is returned by Send while an earlier request still
// waits for its response.
var ErrRequestOutstanding = errors.New("request already outstanding")

// Correlator pairs each command with the next frame the radio sends. There
// are no request ids on the wire, so only one request may be outstanding at a
// time and replies are matched by order.
type Correlator struct {
	adapter     Adapter
	rs          *Reassembler
	chunk       []byte
	readTimeout time.Duration
	step        time.Duration
	rl          ratelimit.Limiter
	log         *zap.Logger
	metrics     *metrics.Metrics

	mu          sync.Mutex
	outstanding bool
	last        string
}

func NewCorrelator(adapter Adapter, rs *Reassembler, cfg *Config, log *zap.Logger, m *metrics.Metrics) *Correlator {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	rl := ratelimit.NewUnlimited()
	if cfg.CommandRate > 0 {
		rl = ratelimit.New(cfg.CommandRate)
	}
	return &Correlator{
		adapter:     adapter,
		rs:          rs,
		chunk:       make([]byte, cfg.ChunkSize),
		readTimeout: cfg.ReadTimeout,
		step:        cfg.RetryStep,
		rl:          rl,
		log:         log,
		metrics:     m,
	}
}

// Outstanding reports whether a request is waiting for its response.
func (c *Correlator) Outstanding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding
}

// Abandon gives up on the outstanding request. A late reply will be taken as
// the answer to whatever is sent next.
func (c *Correlator) Abandon() {
	c.mu.Lock()
	if c.outstanding {
		c.log.Debug("abandoning request", zap.String("command", c.last))
	}
	c.outstanding = false
	c.mu.Unlock()
}

// Send writes one command. A failed write is a TransportWrite error and is
// not retried.
func (c *Correlator) Send(ctx context.Context, cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(ctx, cmd)
}

func (c *Correlator) send(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.outstanding {
		return fmt.Errorf("send %s: %w (waiting on %s)", cmd.Name, ErrRequestOutstanding, c.last)
	}
	b, err := cmd.MarshalBinary()
	if err != nil {
		return err
	}
	c.rl.Take()
	n, err := c.adapter.Write(b)
	if err != nil {
		return &Error{Kind: KindTransportWrite, Op: "send " + cmd.Name, Err: err}
	}
	if n != len(b) {
		return &Error{Kind: KindTransportWrite, Op: "send " + cmd.Name, Err: fmt.Errorf("short write %d of %d bytes", n, len(b))}
	}
	c.outstanding = true
	c.last = cmd.Name
	c.metrics.Sent(cmd.Name, n)
	c.log.Debug("sent", zap.String("command", cmd.Name), zap.Binary("data", b))
	return nil
}

// AwaitResponse polls the transport until the reassembler produces a frame or
// timeout is used up, sleeping RetryStep between polls. It always polls at
// least once.
func (c *Correlator) AwaitResponse(ctx context.Context, timeout time.Duration) (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.await(ctx, timeout)
}

func (c *Correlator) await(ctx context.Context, timeout time.Duration) (Frame, error) {
	remaining := timeout
	for {
		if f, ok := c.rs.Next(); ok {
			return c.got(f), nil
		}
		n, err := c.adapter.Read(c.chunk, c.readTimeout)
		if err != nil {
			return nil, &Error{Kind: KindTransportRead, Op: "await response", Err: err}
		}
		if n > 0 {
			c.metrics.Received(n)
			f, ok, err := c.rs.Feed(c.chunk[:n])
			if err != nil {
				// the reply went out with the buffer
				c.outstanding = false
				return nil, err
			}
			if ok {
				return c.got(f), nil
			}
		}
		if remaining <= 0 {
			return nil, &Error{Kind: KindTimeout, Op: "await " + c.last, Err: &TimeoutError{Timeout: timeout, Op: "await " + c.last}}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.step):
		}
		remaining -= c.step
	}
}

func (c *Correlator) got(f Frame) Frame {
	c.outstanding = false
	c.log.Debug("received", zap.Uint8("op", f.Op()), zap.Int("len", len(f)))
	return f
}

// Request sends cmd and waits for its response while holding the turn.
func (c *Correlator) Request(ctx context.Context, cmd Command, timeout time.Duration) (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.send(ctx, cmd); err != nil {
		return nil, err
	}
	return c.await(ctx, timeout)
}

// Flush drops everything buffered and any outstanding request.
func (c *Correlator) Flush() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outstanding = false
	return c.rs.Reset()
}
