package ui

import (
	"strconv"
	"strings"

	"github.com/jroimartin/gocui"
)

// Input is a one line edit box that only accepts digits.
type Input struct {
	Name      string
	Title     string
	X, Y      int
	W         int
	MaxLength int
}

func (i *Input) Layout(g *gocui.Gui) error {
	v, err := g.SetView(i.Name, i.X, i.Y, i.X+i.W, i.Y+2)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = i.Title
		v.Editor = i
		v.Editable = true
	}
	return nil
}

func (i *Input) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	cx, _ := v.Cursor()
	ox, _ := v.Origin()
	limit := ox+cx+1 > i.MaxLength
	switch {
	case ch >= '0' && ch <= '9' && mod == 0 && !limit:
		v.EditWrite(ch)
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	}
}

// Value parses the box content, ok is false when it is empty or not a number.
func (i *Input) Value(v *gocui.View) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v.Buffer()))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Reset empties the box.
func (i *Input) Reset(v *gocui.View) {
	v.Clear()
	v.SetCursor(0, 0)
	v.SetOrigin(0, 0)
}
