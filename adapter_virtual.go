package gopcr

import (
	"bytes"
	"context"
	"sync"
	"time"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:               "Virtual",
		Description:        "In-process radio simulator",
		RequiresSerialPort: false,
		New: func(cfg *AdapterConfig) (Adapter, error) {
			return NewVirtual(cfg, DemoLineup()), nil
		},
	}); err != nil {
		panic(err)
	}
}

// Station is what the virtual radio broadcasts on a channel.
type Station struct {
	Name, Category, Artist, Title string
}

// DemoLineup is a small fixed channel lineup for the simulator.
func DemoLineup() map[int]Station {
	return map[int]Station{
		0:   {Name: "Preview", Category: "XM", Artist: "XM Satellite", Title: "Channel Guide"},
		4:   {Name: "The 40s", Category: "Decades", Artist: "Glenn Miller", Title: "In The Mood"},
		8:   {Name: "The 80s", Category: "Decades", Artist: "Duran Duran", Title: "Rio"},
		20:  {Name: "Highway 16", Category: "Country", Artist: "Alan Jackson", Title: "Chattahoochee"},
		47:  {Name: "XMU", Category: "Rock", Artist: "Pixies", Title: "Debaser"},
		80:  {Name: "Beyond Jazz", Category: "Jazz", Artist: "Miles Davis", Title: "So What"},
		113: {Name: "Pops", Category: "Classical", Artist: "Vienna Phil", Title: "Radetzky March"},
		171: {Name: "Traffic", Category: "Info", Artist: "", Title: "Metro"},
	}
}

// Virtual answers every command the way the radio does. Tests use Script,
// Inject and Written to drive it.
type Virtual struct {
	*BaseAdapter
	mu      sync.Mutex
	out     bytes.Buffer
	written [][]byte
	notify  chan struct{}
	lineup  map[int]Station
	tuned   int

	// MaxChunk limits how many bytes one Read returns, 0 means len(p).
	MaxChunk int
	// Script, when set, replaces the built-in replies for a command frame.
	Script func(cmd Frame) [][]byte
	// WriteErr makes every Write fail.
	WriteErr error
	// Mute stops all replies.
	Mute bool
}

func NewVirtual(cfg *AdapterConfig, lineup map[int]Station) *Virtual {
	if lineup == nil {
		lineup = make(map[int]Station)
	}
	return &Virtual{
		BaseAdapter: NewBaseAdapter("Virtual", cfg),
		notify:      make(chan struct{}, 1),
		lineup:      lineup,
	}
}

func (v *Virtual) Open(ctx context.Context) error {
	return nil
}

func (v *Virtual) Close() error {
	v.BaseAdapter.Close()
	return nil
}

func (v *Virtual) Write(b []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Closed() {
		return 0, ErrClosed
	}
	if v.WriteErr != nil {
		return 0, v.WriteErr
	}
	cmd := make(Frame, len(b))
	copy(cmd, b)
	v.written = append(v.written, cmd)
	if v.Mute {
		return len(b), nil
	}
	var replies [][]byte
	if v.Script != nil {
		replies = v.Script(cmd)
	} else {
		replies = v.reply(cmd)
	}
	for _, r := range replies {
		v.out.Write(r)
	}
	if len(replies) > 0 {
		v.wake()
	}
	return len(b), nil
}

// Inject queues raw bytes as if the radio had sent them.
func (v *Virtual) Inject(b []byte) {
	v.mu.Lock()
	v.out.Write(b)
	v.mu.Unlock()
	v.wake()
}

// Written returns every command frame received so far.
func (v *Virtual) Written() []Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Frame, len(v.written))
	for i, w := range v.written {
		out[i] = Frame(w)
	}
	return out
}

// Tuned returns the last channel selected with change-channel.
func (v *Virtual) Tuned() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tuned
}

func (v *Virtual) Read(p []byte, timeout time.Duration) (int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		v.mu.Lock()
		if v.Closed() {
			v.mu.Unlock()
			return 0, ErrClosed
		}
		if v.out.Len() > 0 {
			buf := p
			if v.MaxChunk > 0 && len(buf) > v.MaxChunk {
				buf = buf[:v.MaxChunk]
			}
			n, _ := v.out.Read(buf)
			v.mu.Unlock()
			return n, nil
		}
		v.mu.Unlock()
		select {
		case <-v.notify:
		case <-timer.C:
			return 0, nil
		case <-v.closeChan:
			return 0, ErrClosed
		}
	}
}

func (v *Virtual) wake() {
	select {
	case v.notify <- struct{}{}:
	default:
	}
}

func (v *Virtual) reply(cmd Frame) [][]byte {
	if !cmd.HasMarker() || len(cmd) <= opOffset {
		return nil
	}
	switch op := cmd.Op(); op {
	case CmdPowerOn.Op:
		return [][]byte{BuildReply(OpHello, 44, []byte{0x00}), BuildReply(OpHello, 44, []byte{0x01})}
	case CmdPowerOff.Op:
		return [][]byte{BuildReply(OpGoodbye, 10, nil)}
	case CmdRadioID.Op:
		return [][]byte{BuildReply(OpRadioID, 18, []byte{0x00, 0x00, 0x00, 'V', 'I', 'R', 'T', 'U', 'A', 'L', '1'})}
	case CmdRadioInfo.Op:
		return [][]byte{BuildReply(OpRadioInfo, 32, []byte{0x01, 0x02, 0x03})}
	case CmdSignal.Op:
		return [][]byte{BuildReply(OpSignal, 32, []byte{0x03, 0x02})}
	case CmdChangeChannel.Op:
		if len(cmd) > 6 {
			v.tuned = int(cmd[6])
		}
		return [][]byte{BuildReply(OpChangeAck, 8, []byte{0x00})}
	case CmdChannelInfo.Op:
		if len(cmd) <= 6 {
			return nil
		}
		ch := int(cmd[6])
		st, ok := v.lineup[ch]
		return [][]byte{BuildChannelInfo(ch, ReferenceFor(ch, ok), st)}
	default:
		return [][]byte{BuildReply(op|0x80, 8, []byte{0x00})}
	}
}

// BuildReply makes a well formed reply of the given total length. payload is
// written from offset 5 and truncated to fit before the trailer.
func BuildReply(op byte, length int, payload []byte) []byte {
	if length < frameOverhead+1 {
		length = frameOverhead + 1
	}
	b := make([]byte, length)
	b[0], b[1] = StartMarker, SecondMarker
	b[2] = byte((length - frameOverhead) >> 8)
	b[lengthOffset] = byte(length - frameOverhead)
	b[opOffset] = op
	copy(b[opOffset+1:length-trailerLen], payload)
	b[length-2], b[length-1] = TrailerByte, TrailerByte
	return b
}

// BuildChannelInfo makes a channel-info reply carrying the channel number, the
// comparison byte and the four text fields.
func BuildChannelInfo(ch int, ref byte, st Station) []byte {
	b := BuildReply(OpChannelInfo, 83, nil)
	b[channelOffset] = byte(ClampChannel(ch))
	b[referenceOffset] = ref
	for i, s := range []string{st.Name, st.Category, st.Artist, st.Title} {
		field := b[fieldOffsets[i] : fieldOffsets[i]+FieldWidth]
		for j := range field {
			field[j] = ' '
		}
		copy(field, s)
	}
	return b
}

// ReferenceFor picks a comparison byte that makes ChannelExists agree with
// exists for channel ch.
func ReferenceFor(ch int, exists bool) byte {
	switch {
	case ch < 79:
		if exists {
			return byte(ch)
		}
		return byte(ch + 1)
	case ch < 171:
		if exists {
			return byte(ch - 1)
		}
		return byte(ch)
	case ch == 171:
		if exists {
			return 171
		}
		return 0
	default:
		return 0
	}
}
