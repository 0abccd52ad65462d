package gopcr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

const (
	StartMarker  = 0x5A
	SecondMarker = 0xA5
	TrailerByte  = 0xED

	// header is marker(2) + length(2), trailer is ED ED
	headerLen     = 4
	trailerLen    = 2
	frameOverhead = headerLen + trailerLen
	// longest frame the length byte can describe
	maxFrameLen = 0xFF + frameOverhead

	lengthOffset = 3
	opOffset     = 4
)

// Response operation bytes, found at offset 4 of a reply.
const (
	OpHello       = 0x80
	OpGoodbye     = 0x81
	OpChangeAck   = 0x90
	OpChannelInfo = 0xA5
	OpRadioID     = 0xB1
	OpSignal      = 0xC3
	OpRadioInfo   = 0xF0
)

// Frame is one delimited protocol message, markers included.
type Frame []byte

// Op returns the operation byte or 0 for frames too short to carry one.
func (f Frame) Op() byte {
	if len(f) <= opOffset {
		return 0
	}
	return f[opOffset]
}

func (f Frame) Length() int {
	return len(f)
}

// HasMarker reports whether the frame starts with 5A A5.
func (f Frame) HasMarker() bool {
	return len(f) >= 2 && f[0] == StartMarker && f[1] == SecondMarker
}

var (
	yellow = color.New(color.FgHiBlue).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func (f Frame) String() string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("op 0x%02X", f.Op()) + " || ")
	out.WriteString(strconv.Itoa(len(f)) + " || ")
	out.WriteString(hexView(f))
	out.WriteString(" || ")
	out.WriteString(onlyPrintable(f))
	return out.String()
}

func (f Frame) ColorString() string {
	var out strings.Builder
	out.WriteString(green("op 0x%02X", f.Op()) + " || ")
	out.WriteString(strconv.Itoa(len(f)) + " || ")
	out.WriteString(red("%s", hexView(f)))
	out.WriteString(" || ")
	out.WriteString(yellow("%s", onlyPrintable(f)))
	return out.String()
}

func hexView(data []byte) string {
	var out strings.Builder
	for i, b := range data {
		out.WriteString(fmt.Sprintf("%02X", b))
		if i != len(data)-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func onlyPrintable(data []byte) string {
	var out strings.Builder
	for _, b := range data {
		if b <= ' ' || b > 0x7f {
			out.WriteString("-")
		} else {
			out.WriteByte(b)
		}
	}
	return out.String()
}
