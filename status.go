package gopcr

import "fmt"

const (
	signalSatOffset = 5
	signalTerOffset = 6
)

// SignalLevel is the radio's 0-3 reception rating.
type SignalLevel int

func (l SignalLevel) String() string {
	switch l {
	case 0:
		return "none"
	case 1:
		return "fair"
	case 2:
		return "good"
	case 3:
		return "excellent"
	default:
		return fmt.Sprintf("unknown(%d)", int(l))
	}
}

// SignalStatus is the decoded reply to the signal-quality command.
type SignalStatus struct {
	Satellite   SignalLevel
	Terrestrial SignalLevel
	Raw         Frame
}

func (s SignalStatus) String() string {
	return fmt.Sprintf("satellite: %s terrestrial: %s", s.Satellite, s.Terrestrial)
}

func DecodeSignal(f Frame) (*SignalStatus, error) {
	if !f.HasMarker() || f.Op() != OpSignal || len(f) <= signalTerOffset {
		return nil, &Error{Kind: KindMalformedFrame, Op: "decode signal", Err: fmt.Errorf("unexpected frame: %X", []byte(f))}
	}
	return &SignalStatus{
		Satellite:   SignalLevel(f[signalSatOffset]),
		Terrestrial: SignalLevel(f[signalTerOffset]),
		Raw:         f,
	}, nil
}
