package gopcr

import (
	"encoding/binary"
	"fmt"
)

const (
	MinChannel = 0
	MaxChannel = 255
)

// Command is a fixed byte template. ChannelArg is the index into Args of the
// channel byte, or -1 when the command carries no channel.
type Command struct {
	Name       string
	Op         byte
	Args       []byte
	ChannelArg int
}

// The order and content of these templates was captured from the vendor
// software talking to the radio and is not otherwise documented.
var (
	CmdPowerOn       = Command{Name: "power-on", Op: 0x00, Args: []byte{0x10, 0x10, 0x10, 0x01}, ChannelArg: -1}
	CmdPowerOff      = Command{Name: "power-off", Op: 0x01, Args: []byte{0x00}, ChannelArg: -1}
	CmdRadioInfo     = Command{Name: "radio-info", Op: 0x70, Args: []byte{0x05}, ChannelArg: -1}
	CmdRadioID       = Command{Name: "radio-id", Op: 0x31, ChannelArg: -1}
	CmdVendorA       = Command{Name: "vendor-a", Op: 0x42, Args: []byte{0x01}, ChannelArg: -1}
	CmdVendorB       = Command{Name: "vendor-b", Op: 0x13, Args: []byte{0x00}, ChannelArg: -1}
	CmdInit          = Command{Name: "init", Op: 0x50, Args: []byte{0x00, 0x00, 0x00, 0x00, 0x00}, ChannelArg: -1}
	CmdChangeChannel = Command{Name: "change-channel", Op: 0x10, Args: []byte{0x01, 0x00, 0x00, 0x00, 0x01}, ChannelArg: 1}
	CmdChannelInfo   = Command{Name: "channel-info", Op: 0x25, Args: []byte{0x08, 0x00, 0x00}, ChannelArg: 1}
	CmdSignal        = Command{Name: "signal", Op: 0x43, ChannelArg: -1}
)

// ClampChannel confines n to the range a single channel byte can encode.
func ClampChannel(n int) int {
	if n < MinChannel {
		return MinChannel
	}
	if n > MaxChannel {
		return MaxChannel
	}
	return n
}

// WithChannel returns a copy of the command with the channel byte set to n,
// clamped to 0..255.
func (c Command) WithChannel(n int) Command {
	out := c
	out.Args = make([]byte, len(c.Args))
	copy(out.Args, c.Args)
	if c.ChannelArg >= 0 && c.ChannelArg < len(out.Args) {
		out.Args[c.ChannelArg] = byte(ClampChannel(n))
	}
	return out
}

// Channel returns the encoded channel or -1.
func (c Command) Channel() int {
	if c.ChannelArg < 0 || c.ChannelArg >= len(c.Args) {
		return -1
	}
	return int(c.Args[c.ChannelArg])
}

// RequestChannelInfo builds the channel-info request for channel n.
func RequestChannelInfo(n int) Command {
	return CmdChannelInfo.WithChannel(n)
}

// SelectChannel builds the change-channel command for channel n.
func SelectChannel(n int) Command {
	return CmdChangeChannel.WithChannel(n)
}

func (c Command) MarshalBinary() ([]byte, error) {
	size := len(c.Args) + 1
	if size > 0xFFFF {
		return nil, fmt.Errorf("command %s: data size is too big", c.Name)
	}
	data := make([]byte, 0, size+frameOverhead)
	data = append(data, StartMarker, SecondMarker)
	data = binary.BigEndian.AppendUint16(data, uint16(size))
	data = append(data, c.Op)
	data = append(data, c.Args...)
	data = append(data, TrailerByte, TrailerByte)
	return data, nil
}

// Bytes is MarshalBinary for templates known to fit.
func (c Command) Bytes() []byte {
	b, err := c.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return b
}

func (c Command) String() string {
	return fmt.Sprintf("%s: %02X", c.Name, c.Bytes())
}
