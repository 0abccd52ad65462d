package gopcr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSequence(t *testing.T) {
	v := newTestVirtual(t)
	cfg := testConfig()
	c := newTestCorrelator(v, cfg)
	var log eventLog
	seq := NewSequencer(c, cfg, nil, log.emit)

	info, err := seq.Run(context.Background(), InitSequence(12))
	require.NoError(t, err)
	assert.Equal(t, "VIRTUAL1", info.ID)
	assert.Equal(t, 2, info.HelloSeen)
	assert.Equal(t, OpRadioInfo, info.Info.Op())

	assert.Equal(t, []byte{0x00, 0x70, 0x31, 0x42, 0x13, 0x50, 0x25}, sentOps(v))
	written := v.Written()
	assert.Equal(t, Frame(CmdPowerOn.Bytes()), written[0])
	assert.Equal(t, Frame(CmdInit.Bytes()), written[5])
	assert.Equal(t, []int{12}, sentChannelInfo(v))

	// the last request is left for the scheduler
	assert.True(t, c.Outstanding())
	assert.Len(t, log.ofType(EventTypeInfo), 7)
}

func TestInitSequenceSilentRadioIsFatal(t *testing.T) {
	v := newTestVirtual(t)
	v.Mute = true
	cfg := testConfig()
	cfg.InitTimeout = 20 * time.Millisecond
	c := newTestCorrelator(v, cfg)

	_, err := NewSequencer(c, cfg, nil, nil).Run(context.Background(), InitSequence(0))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTimeout))
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, IsRecoverable(err))

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, PhaseInit, se.Phase)
	assert.Len(t, v.Written(), 1, "no step after a failed one")
}

func TestInitSequenceSecondHelloMissing(t *testing.T) {
	v := newTestVirtual(t)
	v.Script = func(cmd Frame) [][]byte {
		if cmd.Op() == CmdPowerOn.Op {
			return [][]byte{BuildReply(OpHello, 44, nil)}
		}
		return v.reply(cmd)
	}
	cfg := testConfig()
	cfg.InitTimeout = 20 * time.Millisecond
	c := newTestCorrelator(v, cfg)

	info, err := NewSequencer(c, cfg, nil, nil).Run(context.Background(), InitSequence(0))
	require.Error(t, err)
	assert.Equal(t, 1, info.HelloSeen)
	assert.Contains(t, err.Error(), "init await")
}

func TestInitSequenceWriteFailure(t *testing.T) {
	v := newTestVirtual(t)
	v.WriteErr = errors.New("broken pipe")
	cfg := testConfig()
	c := newTestCorrelator(v, cfg)

	_, err := NewSequencer(c, cfg, nil, nil).Run(context.Background(), InitSequence(0))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransportWrite))
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, PhaseInit, se.Phase)
}

func TestDecodeRadioID(t *testing.T) {
	f := Frame(BuildReply(OpRadioID, 18, []byte{0x00, 0x00, 0x00, 'A', 'B', 'C', 'D', '1', '2', '3', '4'}))
	assert.Equal(t, "ABCD1234", DecodeRadioID(f))
	assert.Empty(t, DecodeRadioID(Frame(BuildReply(OpRadioInfo, 32, nil))))
	assert.Empty(t, DecodeRadioID(Frame{StartMarker, SecondMarker, 0x00, 0x01, OpRadioID, TrailerByte}))
}
