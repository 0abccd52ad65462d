package gopcr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandBytes(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want []byte
	}{
		{"power-on", CmdPowerOn, []byte{0x5A, 0xA5, 0x00, 0x05, 0x00, 0x10, 0x10, 0x10, 0x01, 0xED, 0xED}},
		{"power-off", CmdPowerOff, []byte{0x5A, 0xA5, 0x00, 0x02, 0x01, 0x00, 0xED, 0xED}},
		{"radio-id", CmdRadioID, []byte{0x5A, 0xA5, 0x00, 0x01, 0x31, 0xED, 0xED}},
		{"init", CmdInit, []byte{0x5A, 0xA5, 0x00, 0x06, 0x50, 0x00, 0x00, 0x00, 0x00, 0x00, 0xED, 0xED}},
		{"channel-info 47", RequestChannelInfo(47), []byte{0x5A, 0xA5, 0x00, 0x04, 0x25, 0x08, 0x2F, 0x00, 0xED, 0xED}},
		{"change-channel 47", SelectChannel(47), []byte{0x5A, 0xA5, 0x00, 0x06, 0x10, 0x01, 0x2F, 0x00, 0x00, 0x01, 0xED, 0xED}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Bytes())
		})
	}
}

func TestRequestChannelInfoClamps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, 0},
		{-200, 0},
		{0, 0},
		{171, 171},
		{255, 255},
		{256, 255},
		{1000, 255},
	}
	for _, tt := range tests {
		cmd := RequestChannelInfo(tt.in)
		assert.Equal(t, tt.want, cmd.Channel(), "channel %d", tt.in)
		assert.Equal(t, byte(tt.want), cmd.Bytes()[6], "channel %d", tt.in)
	}
}

func TestWithChannelLeavesTemplateAlone(t *testing.T) {
	_ = RequestChannelInfo(9)
	_ = SelectChannel(12)
	assert.Equal(t, 0, CmdChannelInfo.Channel())
	assert.Equal(t, 0, CmdChangeChannel.Channel())
	assert.Equal(t, -1, CmdPowerOn.Channel())
	assert.Equal(t, CmdPowerOn.Bytes(), CmdPowerOn.WithChannel(5).Bytes())
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "signal: 5AA5000143EDED", CmdSignal.String())
}
