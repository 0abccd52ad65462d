package gopcr

import "fmt"

type EventType int

func (et EventType) String() string {
	switch et {
	case EventTypeError:
		return "ERROR"
	case EventTypeWarning:
		return "WARN"
	case EventTypeInfo:
		return "INFO"
	case EventTypeDebug:
		return "DEBUG"
	case EventTypeRowUpdated:
		return "ROW"
	case EventTypeSelectionChanged:
		return "SELECT"
	case EventTypeFrameDiscarded:
		return "DISCARD"
	case EventTypeChannelSkipped:
		return "SKIP"
	case EventTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

const (
	EventTypeError EventType = iota
	EventTypeWarning
	EventTypeInfo
	EventTypeDebug
	EventTypeRowUpdated
	EventTypeSelectionChanged
	EventTypeFrameDiscarded
	EventTypeChannelSkipped
	EventTypeTimeout
)

// Event is what the session reports to the UI. Channel is set for row,
// selection, skip and timeout events, Record only for RowUpdated.
type Event struct {
	Type    EventType
	Details string
	Channel int
	Record  *ChannelRecord
}

func (e Event) String() string {
	switch e.Type {
	case EventTypeRowUpdated:
		if e.Record != nil {
			return fmt.Sprintf("[%s] %s", e.Type, e.Record)
		}
	case EventTypeSelectionChanged, EventTypeChannelSkipped:
		return fmt.Sprintf("[%s] channel %03d", e.Type, e.Channel)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Details)
}
