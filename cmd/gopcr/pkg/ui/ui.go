package ui

import (
	"context"
	"fmt"

	"github.com/jroimartin/gocui"
	"github.com/roffe/gopcr"
)

const (
	viewChannels = "channels"
	viewStatus   = "status"
	viewEvents   = "events"
	viewHelp     = "help"
	viewGoto     = "goto"
)

// Controller is the part of the session the list drives.
type Controller interface {
	ChangeChannel(n int) int
	ScrollWindow(top int) int
	RadioID() string
	Stats() gopcr.Stats
}

type App struct {
	ctl    Controller
	model  *Model
	events <-chan gopcr.Event
	jump   *Input
}

func New(ctl Controller, events <-chan gopcr.Event, model *Model) *App {
	return &App{
		ctl:    ctl,
		model:  model,
		events: events,
		jump:   &Input{Name: viewGoto, Title: "Go to", W: 12, MaxLength: 3},
	}
}

// Run shows the channel list until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()
	g.Cursor = false

	g.SetManagerFunc(a.layout)
	if err := a.keybindings(g); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.pump(ctx, g)

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

// pump applies session events and schedules a redraw for each.
func (a *App) pump(ctx context.Context, g *gocui.Gui) {
	for {
		select {
		case <-ctx.Done():
			g.Update(func(*gocui.Gui) error { return gocui.ErrQuit })
			return
		case e := <-a.events:
			a.model.Apply(e)
			g.Update(a.redraw)
		}
	}
}

func (a *App) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView(viewChannels, 0, 0, maxX-1, gopcr.PageSize+1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Channels"
		v.Highlight = true
		v.SelFgColor = gocui.ColorBlack
		v.SelBgColor = gocui.ColorCyan
		if _, err := g.SetCurrentView(viewChannels); err != nil {
			return err
		}
	}
	if v, err := g.SetView(viewStatus, 0, gopcr.PageSize+2, maxX-14, gopcr.PageSize+4); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}
	a.jump.X, a.jump.Y = maxX-13, gopcr.PageSize+2
	if err := a.jump.Layout(g); err != nil {
		return err
	}
	if v, err := g.SetView(viewHelp, maxX-27, gopcr.PageSize+5, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Help"
		v.Wrap = true
		fmt.Fprintln(v, "<Up/Down> Move")
		fmt.Fprintln(v, "<PgUp/PgDn> Page")
		fmt.Fprintln(v, "<Enter> Tune")
		fmt.Fprintln(v, "<G> Go to channel")
		fmt.Fprintln(v, "<Q, Ctrl-C> Quit")
	}
	if v, err := g.SetView(viewEvents, 0, gopcr.PageSize+5, maxX-28, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Events"
		v.Autoscroll = true
		v.Wrap = true
	}
	return a.redraw(g)
}

func (a *App) redraw(g *gocui.Gui) error {
	v, err := g.View(viewChannels)
	if err != nil {
		return err
	}
	v.Clear()
	for _, line := range a.model.Lines() {
		fmt.Fprintln(v, line)
	}
	if err := v.SetCursor(0, a.model.Cursor()); err != nil {
		return err
	}

	if sv, err := g.View(viewStatus); err == nil {
		sv.Clear()
		fmt.Fprintf(sv, "radio: %s  selected: %03d  %s", a.ctl.RadioID(), a.model.Selected(), a.ctl.Stats())
	}
	if ev, err := g.View(viewEvents); err == nil {
		ev.Clear()
		for _, line := range a.model.Log() {
			fmt.Fprintln(ev, line)
		}
	}
	return nil
}

func (a *App) move(d int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if top, scrolled := a.model.MoveCursor(d); scrolled {
			a.ctl.ScrollWindow(top)
		}
		return a.redraw(g)
	}
}

func (a *App) page(d int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		a.ctl.ScrollWindow(a.model.Page(d))
		return a.redraw(g)
	}
}

func (a *App) tune(g *gocui.Gui, v *gocui.View) error {
	a.ctl.ChangeChannel(a.model.CursorChannel())
	return a.redraw(g)
}

func (a *App) gotoChannel(g *gocui.Gui, v *gocui.View) error {
	if n, ok := a.jump.Value(v); ok {
		n = a.ctl.ChangeChannel(n)
		a.model.Focus(n)
		a.ctl.ScrollWindow(a.model.Top())
	}
	a.jump.Reset(v)
	if _, err := g.SetCurrentView(viewChannels); err != nil {
		return err
	}
	return a.redraw(g)
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

func (a *App) keybindings(g *gocui.Gui) error {
	if err := g.SetKeybinding("", 'q', gocui.ModNone, quit); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewChannels, gocui.KeyArrowUp, gocui.ModNone, a.move(-1)); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewChannels, gocui.KeyArrowDown, gocui.ModNone, a.move(1)); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewChannels, gocui.KeyPgup, gocui.ModNone, a.page(-1)); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewChannels, gocui.KeyPgdn, gocui.ModNone, a.page(1)); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewChannels, gocui.KeyEnter, gocui.ModNone, a.tune); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewChannels, 'g', gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			g.Cursor = true
			_, err := g.SetCurrentView(viewGoto)
			return err
		}); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewGoto, gocui.KeyEnter, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			g.Cursor = false
			return a.gotoChannel(g, v)
		}); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewGoto, gocui.KeyEsc, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			g.Cursor = false
			a.jump.Reset(v)
			_, err := g.SetCurrentView(viewChannels)
			return err
		}); err != nil {
		return err
	}
	return nil
}
