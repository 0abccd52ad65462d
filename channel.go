package gopcr

import (
	"fmt"
	"strings"
)

const (
	PageSize   = 10
	FieldWidth = 16

	minChannelInfoLen = 9
	channelOffset     = 8
	referenceOffset   = 9
)

var fieldOffsets = [4]int{10, 28, 45, 61}

// ChannelRecord is one rendered row of the channel list.
type ChannelRecord struct {
	Number int
	Fields [4]string
}

func (c *ChannelRecord) Name() string     { return c.Fields[0] }
func (c *ChannelRecord) Category() string { return c.Fields[1] }
func (c *ChannelRecord) Artist() string   { return c.Fields[2] }
func (c *ChannelRecord) Title() string    { return c.Fields[3] }

func (c *ChannelRecord) String() string {
	return fmt.Sprintf("%03d: %-16.16s %-16.16s %-16.16s %-16.16s", c.Number, c.Fields[0], c.Fields[1], c.Fields[2], c.Fields[3])
}

// IsChannelInfo reports whether f has the shape of a channel-info reply.
func IsChannelInfo(f Frame) bool {
	return len(f) >= minChannelInfoLen && f.HasMarker() && f.Op() == OpChannelInfo
}

// ChannelExists decides from the channel number a and the comparison byte b
// whether a channel-info reply describes a real channel. The bands were found
// by watching the radio and are kept exactly as observed.
func ChannelExists(a, b int) bool {
	switch {
	case a < 79:
		return a >= b
	case a < 171:
		return a > b
	case a == 171:
		return a == b
	default:
		return false
	}
}

// DecodeChannelInfo pulls the channel number, the comparison byte and the text
// fields out of a channel-info reply. Fields beyond the end of a short frame
// come back empty or truncated.
func DecodeChannelInfo(f Frame) (rec *ChannelRecord, ref int, err error) {
	if !IsChannelInfo(f) {
		return nil, 0, &Error{Kind: KindMalformedFrame, Op: "decode channel info", Err: fmt.Errorf("unexpected frame: %X", []byte(f))}
	}
	rec = &ChannelRecord{Number: int(f[channelOffset])}
	for i, off := range fieldOffsets {
		rec.Fields[i] = sliceField(f, off)
	}
	if len(f) <= referenceOffset {
		return rec, 0, &Error{Kind: KindChannelUnknown, Op: "decode channel info", Err: fmt.Errorf("channel %d: no comparison byte", rec.Number)}
	}
	return rec, int(f[referenceOffset]), nil
}

func sliceField(f Frame, off int) string {
	if off >= len(f) {
		return ""
	}
	end := off + FieldWidth
	if end > len(f) {
		end = len(f)
	}
	return strings.TrimRight(strings.Map(func(r rune) rune {
		if r < ' ' || r > '~' {
			return ' '
		}
		return r
	}, string(f[off:end])), " ")
}
