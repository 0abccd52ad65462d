package gopcr

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestFrameAccessors(t *testing.T) {
	f := Frame(BuildReply(OpChangeAck, 8, nil))
	assert.True(t, f.HasMarker())
	assert.Equal(t, byte(OpChangeAck), f.Op())
	assert.Equal(t, 8, f.Length())

	short := Frame{StartMarker}
	assert.False(t, short.HasMarker())
	assert.Equal(t, byte(0), short.Op())
}

func TestFrameString(t *testing.T) {
	f := Frame(BuildReply(OpChangeAck, 8, nil))
	want := "op 0x90 || 8 || 5A A5 00 02 90 00 ED ED || Z-------"
	assert.Equal(t, want, f.String())

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
	assert.Equal(t, want, f.ColorString())
}
