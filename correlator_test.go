package gopcr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitResponseZeroPollsOnce(t *testing.T) {
	v := newTestVirtual(t)
	ca := &countingAdapter{Adapter: v}
	c := newTestCorrelator(ca, testConfig())

	start := time.Now()
	f, err := c.AwaitResponse(context.Background(), 0)
	require.Error(t, err)
	assert.Nil(t, f)
	assert.True(t, IsKind(err, KindTimeout))
	assert.True(t, errors.Is(err, ErrTimeout))
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, time.Duration(0), te.Timeout)
	assert.Equal(t, 1, ca.Reads())
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestAwaitResponseBudget(t *testing.T) {
	v := newTestVirtual(t)
	ca := &countingAdapter{Adapter: v}
	cfg := testConfig()
	cfg.RetryStep = 10 * time.Millisecond
	c := newTestCorrelator(ca, cfg)

	_, err := c.AwaitResponse(context.Background(), 30*time.Millisecond)
	require.True(t, IsKind(err, KindTimeout))
	assert.Equal(t, 4, ca.Reads())
}

func TestAwaitResponseReturnsBufferedFrame(t *testing.T) {
	v := newTestVirtual(t)
	c := newTestCorrelator(v, testConfig())

	v.Inject(append(BuildReply(OpChangeAck, 8, nil), BuildReply(OpGoodbye, 10, nil)...))
	f, err := c.AwaitResponse(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, OpChangeAck, f.Op())

	// second frame came in with the first read
	f, err = c.AwaitResponse(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, OpGoodbye, f.Op())
}

func TestRequest(t *testing.T) {
	v := newTestVirtual(t)
	c := newTestCorrelator(v, testConfig())

	f, err := c.Request(context.Background(), CmdRadioID, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, OpRadioID, f.Op())
	assert.Equal(t, "VIRTUAL1", DecodeRadioID(f))
	assert.False(t, c.Outstanding())
	assert.Equal(t, []Frame{Frame(CmdRadioID.Bytes())}, v.Written())
}

func TestRequestOverflowReleasesTurn(t *testing.T) {
	v := newTestVirtual(t)
	v.Script = func(cmd Frame) [][]byte { return [][]byte{BuildReply(OpChangeAck, 120, nil)} }
	c := NewCorrelator(v, NewReassembler(100), testConfig(), nil, nil)

	_, err := c.Request(context.Background(), SelectChannel(8), 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBufferOverflow))
	assert.ErrorIs(t, err, ErrBufferOverflow)
	assert.False(t, c.Outstanding())
	assert.NoError(t, c.Send(context.Background(), RequestChannelInfo(8)))
}

func TestSendWhileOutstanding(t *testing.T) {
	v := newTestVirtual(t)
	v.Mute = true
	c := newTestCorrelator(v, testConfig())
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, CmdSignal))
	assert.True(t, c.Outstanding())

	err := c.Send(ctx, CmdSignal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestOutstanding))
	assert.Len(t, v.Written(), 1)

	_, err = c.Request(ctx, CmdSignal, 0)
	assert.True(t, errors.Is(err, ErrRequestOutstanding))

	c.Abandon()
	assert.False(t, c.Outstanding())
	require.NoError(t, c.Send(ctx, CmdSignal))
	assert.Len(t, v.Written(), 2)
}

func TestSendWriteFailureIsFatal(t *testing.T) {
	v := newTestVirtual(t)
	v.WriteErr = errors.New("device unplugged")
	c := newTestCorrelator(v, testConfig())

	err := c.Send(context.Background(), CmdPowerOn)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransportWrite))
	assert.False(t, IsRecoverable(err))
	assert.False(t, c.Outstanding())
	assert.ErrorContains(t, err, "device unplugged")
}

func TestAwaitReadFailureIsFatal(t *testing.T) {
	v := NewVirtual(nil, nil)
	c := newTestCorrelator(v, testConfig())
	v.Close()

	_, err := c.AwaitResponse(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransportRead))
	assert.True(t, errors.Is(err, ErrClosed))
	assert.False(t, IsRecoverable(err))
}

func TestAwaitResponseCancelled(t *testing.T) {
	v := newTestVirtual(t)
	c := newTestCorrelator(v, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.AwaitResponse(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFlush(t *testing.T) {
	v := newTestVirtual(t)
	v.Mute = true
	c := newTestCorrelator(v, testConfig())
	require.NoError(t, c.Send(context.Background(), CmdSignal))
	v.Inject([]byte{StartMarker, SecondMarker, 0x00})
	_, err := c.AwaitResponse(context.Background(), 0)
	require.Error(t, err)

	assert.Equal(t, 3, c.Flush())
	assert.False(t, c.Outstanding())
}
