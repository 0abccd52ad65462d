package gopcr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFatal(t *testing.T) {
	tests := []struct {
		kind  ErrorKind
		phase Phase
		fatal bool
	}{
		{KindTransportWrite, PhaseRuntime, true},
		{KindTransportRead, PhaseRuntime, true},
		{KindTimeout, PhaseRuntime, false},
		{KindMalformedFrame, PhaseRuntime, false},
		{KindChannelUnknown, PhaseRuntime, false},
		{KindBufferOverflow, PhaseRuntime, false},
		{KindTimeout, PhaseInit, true},
		{KindMalformedFrame, PhaseInit, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.phase, tt.kind), func(t *testing.T) {
			err := &Error{Kind: tt.kind, Phase: tt.phase}
			assert.Equal(t, tt.fatal, err.Fatal())
			assert.Equal(t, !tt.fatal, IsRecoverable(err))
			assert.Equal(t, !tt.fatal, IsRecoverable(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestAtPhase(t *testing.T) {
	orig := &Error{Kind: KindTimeout, Op: "await radio-id", Err: &TimeoutError{Timeout: 5 * time.Second, Op: "radio-id"}}
	err := AtPhase(orig, PhaseInit)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, PhaseInit, se.Phase)
	assert.Equal(t, PhaseRuntime, orig.Phase, "original is left alone")
	assert.Equal(t, "init await radio-id: timeout: radio-id timeout (5000ms)", err.Error())
	assert.ErrorIs(t, err, ErrTimeout)

	plain := errors.New("plain")
	assert.Same(t, plain, AtPhase(plain, PhaseInit))
}

func TestUnrecoverable(t *testing.T) {
	base := errors.New("port gone")
	err := Unrecoverable(base)
	assert.False(t, IsRecoverable(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "port gone", err.Error())
	assert.Equal(t, "unrecoverable error", Unrecoverable(nil).Error())
	assert.True(t, IsRecoverable(nil))
	assert.True(t, IsRecoverable(base))
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("scan: %w", &Error{Kind: KindChannelUnknown})
	assert.True(t, IsKind(err, KindChannelUnknown))
	assert.False(t, IsKind(err, KindTimeout))
	assert.False(t, IsKind(errors.New("x"), KindTimeout))
}

func TestEventString(t *testing.T) {
	rec, _, err := DecodeChannelInfo(Frame(BuildChannelInfo(8, 8, Station{Name: "The 80s"})))
	require.NoError(t, err)

	assert.Equal(t, "[SELECT] channel 047", Event{Type: EventTypeSelectionChanged, Channel: 47}.String())
	assert.Equal(t, "[TIMEOUT] no reply", Event{Type: EventTypeTimeout, Details: "no reply"}.String())
	assert.Equal(t, "[ROW] "+rec.String(), Event{Type: EventTypeRowUpdated, Record: rec}.String())
}

func TestStatsCount(t *testing.T) {
	var c counters
	for _, et := range []EventType{EventTypeRowUpdated, EventTypeRowUpdated, EventTypeChannelSkipped, EventTypeTimeout, EventTypeError, EventTypeInfo} {
		c.count(Event{Type: et})
	}
	st := c.snapshot()
	assert.Equal(t, Stats{Rows: 2, Skipped: 1, Timeouts: 1, Errors: 1}, st)
	assert.Contains(t, st.String(), "rows: 2")
}
