package gopcr

import (
	"errors"
	"fmt"
	"time"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable reports whether the session may keep running after err.
// Errors wrapped with Unrecoverable and fatal *Error values are not recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	var ue unrecoverableError
	if errors.As(err, &ue) {
		return false
	}
	var se *Error
	if errors.As(err, &se) {
		return !se.Fatal()
	}
	return true
}

var (
	ErrNilAdapter     = errors.New("adapter is nil")
	ErrClosed         = errors.New("session closed")
	ErrTimeout        = errors.New("timeout waiting for response")
	ErrBufferOverflow = errors.New("response buffer overflow")
	ErrEventChanFull  = errors.New("event channel full")
)

type ErrorKind int

const (
	KindTransportWrite ErrorKind = iota
	KindTransportRead
	KindTimeout
	KindMalformedFrame
	KindChannelUnknown
	KindBufferOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransportWrite:
		return "transport write failure"
	case KindTransportRead:
		return "transport read failure"
	case KindTimeout:
		return "timeout"
	case KindMalformedFrame:
		return "malformed frame"
	case KindChannelUnknown:
		return "channel existence unknown"
	case KindBufferOverflow:
		return "buffer overflow"
	default:
		return "unknown"
	}
}

// Phase tells whether an error happened during the one-shot initialization
// sequence or during steady-state polling.
type Phase int

const (
	PhaseRuntime Phase = iota
	PhaseInit
)

func (p Phase) String() string {
	if p == PhaseInit {
		return "init"
	}
	return "runtime"
}

type Error struct {
	Kind  ErrorKind
	Phase Phase
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Phase, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Phase, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether the session must abort. Anything that goes wrong during
// initialization is fatal, at runtime only transport failures are.
func (e *Error) Fatal() bool {
	if e.Phase == PhaseInit {
		return true
	}
	return e.Kind == KindTransportWrite || e.Kind == KindTransportRead
}

// AtPhase returns a copy of err re-tagged with phase when err is an *Error.
func AtPhase(err error, phase Phase) error {
	var se *Error
	if !errors.As(err, &se) {
		return err
	}
	cp := *se
	cp.Phase = phase
	return &cp
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

type TimeoutError struct {
	Timeout time.Duration
	Op      string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout (%dms)", e.Op, e.Timeout.Milliseconds())
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}
