package ui

import (
	"fmt"
	"sync"

	"github.com/roffe/gopcr"
)

const maxLogLines = 200

// Model is the state behind the channel list. Rows are kept for every channel
// seen, not only the visible page, so scrolling back shows what is known.
type Model struct {
	mu       sync.Mutex
	rows     map[int]*gopcr.ChannelRecord
	top      int
	cursor   int
	selected int
	log      []string
}

func NewModel(top, selected int) *Model {
	return &Model{
		rows:     make(map[int]*gopcr.ChannelRecord),
		top:      clampTop(top),
		selected: gopcr.ClampChannel(selected),
	}
}

func clampTop(top int) int {
	if top < gopcr.MinChannel {
		return gopcr.MinChannel
	}
	if top > gopcr.MaxTopChannel {
		return gopcr.MaxTopChannel
	}
	return top
}

// Apply folds one session event into the model.
func (m *Model) Apply(e gopcr.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch e.Type {
	case gopcr.EventTypeRowUpdated:
		if e.Record != nil {
			m.rows[e.Record.Number] = e.Record
		}
		return
	case gopcr.EventTypeSelectionChanged:
		m.selected = e.Channel
		return
	case gopcr.EventTypeDebug, gopcr.EventTypeChannelSkipped:
		return
	}
	m.log = append(m.log, e.String())
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *Model) Top() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.top
}

func (m *Model) Selected() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

func (m *Model) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// CursorChannel is the channel under the cursor.
func (m *Model) CursorChannel() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.top + m.cursor
}

// MoveCursor moves the cursor by d rows. Moving past either edge scrolls the
// page instead, the returned bool tells whether top changed.
func (m *Model) MoveCursor(d int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := m.cursor + d
	oldTop := m.top
	switch {
	case pos < 0:
		m.top = clampTop(m.top + pos)
		m.cursor = 0
	case pos >= gopcr.PageSize:
		m.top = clampTop(m.top + pos - gopcr.PageSize + 1)
		m.cursor = gopcr.PageSize - 1
	default:
		m.cursor = pos
	}
	return m.top, m.top != oldTop
}

// Page scrolls a whole page, d is -1 or 1.
func (m *Model) Page(d int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.top = clampTop(m.top + d*gopcr.PageSize)
	return m.top
}

// Focus scrolls so ch is on the first row, or as close to it as the last
// page allows, and puts the cursor on it.
func (m *Model) Focus(ch int) {
	ch = gopcr.ClampChannel(ch)
	m.mu.Lock()
	m.top = clampTop(ch)
	m.cursor = ch - m.top
	m.mu.Unlock()
}

// Lines renders the visible page, one line per channel slot.
func (m *Model) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, gopcr.PageSize)
	for ch := m.top; ch < m.top+gopcr.PageSize; ch++ {
		mark := " "
		if ch == m.selected {
			mark = "*"
		}
		if rec, ok := m.rows[ch]; ok {
			out = append(out, mark+rec.String())
		} else {
			out = append(out, fmt.Sprintf("%s%03d:", mark, ch))
		}
	}
	return out
}

// Log returns the most recent event lines, oldest first.
func (m *Model) Log() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.log))
	copy(out, m.log)
	return out
}
