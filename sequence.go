package gopcr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Step is one entry of the startup handshake. A step with a nil Command only
// waits for another reply to the previous command.
type Step struct {
	Command *Command
	Await   bool
}

func send(c Command) Step       { return Step{Command: &c, Await: true} }
func awaitOnly() Step           { return Step{Await: true} }
func sendNoWait(c Command) Step { return Step{Command: &c} }

// InitSequence is the fixed handshake sent once after the port is opened.
// Power-on is answered twice. The trailing channel-info request is not waited
// for here, its reply is picked up by the poll scheduler.
func InitSequence(firstChannel int) []Step {
	return []Step{
		send(CmdPowerOn),
		awaitOnly(),
		send(CmdRadioInfo),
		send(CmdRadioID),
		send(CmdVendorA),
		send(CmdVendorB),
		send(CmdInit),
		sendNoWait(RequestChannelInfo(firstChannel)),
	}
}

// RadioInfo is what the handshake learned about the radio.
type RadioInfo struct {
	ID        string
	Info      Frame
	HelloSeen int
}

const (
	radioIDOffset = 8
	radioIDLen    = 8
)

// DecodeRadioID extracts the eight character radio id from a radio-id reply.
func DecodeRadioID(f Frame) string {
	if f.Op() != OpRadioID || len(f) < radioIDOffset+radioIDLen {
		return ""
	}
	return strings.TrimSpace(onlyPrintable(f[radioIDOffset : radioIDOffset+radioIDLen]))
}

// Sequencer runs a list of steps strictly in order. Any failure ends the run
// with an init phase error.
type Sequencer struct {
	c       *Correlator
	timeout time.Duration
	log     *zap.Logger
	emit    func(Event)
}

func NewSequencer(c *Correlator, cfg *Config, log *zap.Logger, emit func(Event)) *Sequencer {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	if emit == nil {
		emit = func(Event) {}
	}
	return &Sequencer{c: c, timeout: cfg.InitTimeout, log: log, emit: emit}
}

func (s *Sequencer) Run(ctx context.Context, steps []Step) (*RadioInfo, error) {
	info := &RadioInfo{}
	for i, st := range steps {
		op := "init await"
		if st.Command != nil {
			op = "init " + st.Command.Name
			s.log.Debug("init step", zap.Int("step", i), zap.String("command", st.Command.Name))
			s.emit(Event{Type: EventTypeInfo, Details: fmt.Sprintf("init %d/%d: %s", i+1, len(steps), st.Command.Name)})
			if err := s.c.Send(ctx, *st.Command); err != nil {
				return info, AtPhase(asError(err, op), PhaseInit)
			}
		}
		if !st.Await {
			continue
		}
		f, err := s.c.AwaitResponse(ctx, s.timeout)
		if err != nil {
			return info, AtPhase(asError(err, op), PhaseInit)
		}
		switch f.Op() {
		case OpHello:
			info.HelloSeen++
		case OpRadioID:
			info.ID = DecodeRadioID(f)
		case OpRadioInfo:
			info.Info = f
		}
	}
	return info, nil
}

// asError gives errors without a kind, such as context cancellation, the
// Timeout kind so a phase can be attached.
func asError(err error, op string) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}
