package gopcr

import "bytes"

const DefaultBufferCapacity = 512

// SpecialLength pins the total length of a reply kind whose length byte can't be
// trusted. The kind is recognised by Value at Offset.
type SpecialLength struct {
	Name   string
	Offset int
	Value  byte
	Length int
}

var ResponseLengths = []SpecialLength{
	{Name: "hello", Offset: opOffset, Value: OpHello, Length: 44},
	{Name: "goodbye", Offset: opOffset, Value: OpGoodbye, Length: 10},
	{Name: "info", Offset: opOffset, Value: OpRadioInfo, Length: 32},
	{Name: "id", Offset: opOffset, Value: OpRadioID, Length: 18},
	{Name: "channel", Offset: opOffset, Value: OpChannelInfo, Length: 83},
	{Name: "signal", Offset: opOffset, Value: OpSignal, Length: 32},
}

// Reassembler cuts discrete frames out of the raw byte stream. Frames are
// bounded by the start of the following frame; when no following frame is
// buffered yet the length comes from ResponseLengths or the length byte.
//
// After every call to Next the buffer is either empty or starts with
// StartMarker.
type Reassembler struct {
	buf      []byte
	capacity int
	lengths  []SpecialLength

	// OnDiscard, when set, is told about every run of bytes dropped while
	// resynchronising.
	OnDiscard func(n int, reason string)
}

func NewReassembler(capacity int) *Reassembler {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Reassembler{
		buf:      make([]byte, 0, capacity),
		capacity: capacity,
		lengths:  ResponseLengths,
	}
}

// Len returns the number of buffered bytes.
func (r *Reassembler) Len() int {
	return len(r.buf)
}

func (r *Reassembler) Cap() int {
	return r.capacity
}

// Reset drops everything buffered and returns how many bytes were dropped.
func (r *Reassembler) Reset() int {
	n := len(r.buf)
	r.buf = r.buf[:0]
	return n
}

// Append adds freshly read bytes. Writing past capacity empties the buffer and
// returns a BufferOverflow error.
func (r *Reassembler) Append(p []byte) error {
	if len(r.buf)+len(p) > r.capacity {
		r.discard(len(r.buf)+len(p), "overflow")
		r.buf = r.buf[:0]
		return &Error{Kind: KindBufferOverflow, Op: "reassemble", Err: ErrBufferOverflow}
	}
	r.buf = append(r.buf, p...)
	return nil
}

// Feed is Append followed by Next.
func (r *Reassembler) Feed(p []byte) (Frame, bool, error) {
	if err := r.Append(p); err != nil {
		return nil, false, err
	}
	f, ok := r.Next()
	return f, ok, nil
}

// Next emits the leading complete frame, if any. It never blocks.
func (r *Reassembler) Next() (Frame, bool) {
	start := bytes.IndexByte(r.buf, StartMarker)
	if start < 0 {
		if len(r.buf) > 0 {
			r.discard(len(r.buf), "no start marker")
			r.buf = r.buf[:0]
		}
		return nil, false
	}
	if start > 0 {
		r.discard(start, "leading garbage")
		r.shift(start)
	}
	if len(r.buf) == 0 {
		return nil, false
	}

	length := r.frameLength()
	if length <= 0 || length > len(r.buf) {
		return nil, false
	}

	frame := make(Frame, length)
	copy(frame, r.buf[:length])
	r.shift(length)
	return frame, true
}

// frameLength returns the length of the frame at offset 0, or -1 when not
// enough is buffered to tell.
func (r *Reassembler) frameLength() int {
	for i := 2; i < len(r.buf)-1; i++ {
		if r.buf[i] == StartMarker && r.buf[i+1] == SecondMarker {
			return i
		}
	}
	for _, sl := range r.lengths {
		if sl.Offset < len(r.buf) && r.buf[sl.Offset] == sl.Value {
			return sl.Length
		}
	}
	if len(r.buf) <= lengthOffset {
		return -1
	}
	return int(r.buf[lengthOffset]) + frameOverhead
}

func (r *Reassembler) shift(n int) {
	copy(r.buf, r.buf[n:])
	r.buf = r.buf[:len(r.buf)-n]
}

func (r *Reassembler) discard(n int, reason string) {
	if r.OnDiscard != nil {
		r.OnDiscard(n, reason)
	}
}
