package gopcr

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStream() [][]byte {
	return [][]byte{
		BuildReply(OpHello, 44, []byte{0x00}),
		BuildReply(OpHello, 44, []byte{0x01}),
		BuildReply(OpChangeAck, 8, []byte{0x00}),
		BuildChannelInfo(47, ReferenceFor(47, true), Station{Name: "XMU", Category: "Rock", Artist: "Pixies", Title: "Debaser"}),
		BuildReply(OpRadioID, 18, []byte{0x00, 0x00, 0x00, 'V', 'I', 'R', 'T', 'U', 'A', 'L', '1'}),
		BuildReply(OpSignal, 32, []byte{0x03, 0x02}),
		BuildReply(OpGoodbye, 10, nil),
	}
}

func TestReassemblerChunking(t *testing.T) {
	frames := testStream()
	stream := bytes.Join(frames, nil)

	for _, size := range []int{1, 2, 3, 5, 7, 13, 44, 96, len(stream)} {
		t.Run(fmt.Sprintf("chunk %d", size), func(t *testing.T) {
			r := NewReassembler(0)
			var got []Frame
			for off := 0; off < len(stream); off += size {
				end := off + size
				if end > len(stream) {
					end = len(stream)
				}
				require.NoError(t, r.Append(stream[off:end]))
				for {
					f, ok := r.Next()
					if !ok {
						break
					}
					got = append(got, f)
				}
			}
			require.Len(t, got, len(frames))
			for i := range frames {
				assert.Equal(t, frames[i], []byte(got[i]), "frame %d", i)
			}
			assert.Equal(t, 0, r.Len())
		})
	}
}

func TestReassemblerNoMarker(t *testing.T) {
	r := NewReassembler(0)
	var dropped int
	var reason string
	r.OnDiscard = func(n int, why string) {
		dropped += n
		reason = why
	}
	require.NoError(t, r.Append([]byte{0x01, 0x02, 0x03, 0xED}))
	f, ok := r.Next()
	assert.False(t, ok)
	assert.Nil(t, f)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 4, dropped)
	assert.Equal(t, "no start marker", reason)
}

func TestReassemblerLeadingGarbage(t *testing.T) {
	r := NewReassembler(0)
	var dropped int
	r.OnDiscard = func(n int, _ string) { dropped += n }

	ack := BuildReply(OpChangeAck, 8, nil)
	f, ok, err := r.Feed(append([]byte{0x00, 0xED, 0xED}, ack...))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ack, []byte(f))
	assert.Equal(t, 3, dropped)
}

func TestReassemblerPartialFrame(t *testing.T) {
	r := NewReassembler(0)
	ack := BuildReply(OpChangeAck, 8, nil)

	_, ok, err := r.Feed(ack[:3])
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, r.Len())

	_, ok, err = r.Feed(ack[3:6])
	require.NoError(t, err)
	assert.False(t, ok)

	f, ok, err := r.Feed(ack[6:])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ack, []byte(f))
}

func TestReassemblerBoundedByNextMarker(t *testing.T) {
	// the length byte claims more than is there, the next frame wins
	short := []byte{StartMarker, SecondMarker, 0x00, 0x20, 0x42, 0x01, TrailerByte, TrailerByte}
	ack := BuildReply(OpChangeAck, 8, nil)
	r := NewReassembler(0)
	require.NoError(t, r.Append(append(append([]byte{}, short...), ack...)))

	f, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, short, []byte(f))
	f, ok = r.Next()
	require.True(t, ok)
	assert.Equal(t, ack, []byte(f))
}

func TestReassemblerOverflow(t *testing.T) {
	r := NewReassembler(16)
	var reason string
	r.OnDiscard = func(_ int, why string) { reason = why }

	require.NoError(t, r.Append(make([]byte, 10)))
	err := r.Append(make([]byte, 10))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBufferOverflow))
	assert.True(t, errors.Is(err, ErrBufferOverflow))
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, "overflow", reason)

	// usable again after the reset
	ack := BuildReply(OpChangeAck, 8, nil)
	f, ok, err := r.Feed(ack)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ack, []byte(f))
}

func TestReassemblerReset(t *testing.T) {
	r := NewReassembler(0)
	require.NoError(t, r.Append([]byte{StartMarker, SecondMarker, 0x00}))
	assert.Equal(t, 3, r.Reset())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, DefaultBufferCapacity, r.Cap())
}
