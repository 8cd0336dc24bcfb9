package main

import (
	"context"
	"errors"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/jupyter/jupyter-js-docmanager/internal/app"
	"github.com/jupyter/jupyter-js-docmanager/internal/docmanager"
	"github.com/jupyter/jupyter-js-docmanager/internal/editor"
	"github.com/jupyter/jupyter-js-docmanager/internal/widget"
)

// Shell is a minimal tcell front end: a tab strip over the open documents
// and a read/write text view of the current one. Keystrokes drive the
// manager's focus source.
type Shell struct {
	app    *app.Application
	screen tcell.Screen

	mu      sync.Mutex
	stopped bool
}

// NewShell creates the terminal shell and subscribes to document events
// for redraws.
func NewShell(a *app.Application) (*Shell, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	s := &Shell{app: a, screen: screen}

	// Document lifecycle changes arrive on the bus; wake the event loop so
	// the next draw reflects them.
	_, err = a.Bus().SubscribeFunc("document.**", func(ctx context.Context, e any) error {
		_ = s.screen.PostEvent(tcell.NewEventInterrupt(nil))
		return nil
	})
	if err != nil {
		screen.Fini()
		return nil, err
	}
	_, err = a.Bus().SubscribeFunc("contents.**", func(ctx context.Context, e any) error {
		_ = s.screen.PostEvent(tcell.NewEventInterrupt(nil))
		return nil
	})
	if err != nil {
		screen.Fini()
		return nil, err
	}
	return s, nil
}

// Run drives the event loop until quit. Always returns a non-nil error;
// a clean exit is app.ErrQuit.
func (s *Shell) Run() error {
	defer s.screen.Fini()

	s.focusFirst()
	for {
		s.draw()

		ev := s.screen.PollEvent()
		if ev == nil {
			return app.ErrQuit
		}

		switch ev := ev.(type) {
		case *tcell.EventResize:
			s.screen.Sync()
		case *tcell.EventInterrupt:
			// Redraw on the next loop iteration.
		case *tcell.EventKey:
			if err := s.handleKey(ev); err != nil {
				return err
			}
		}
	}
}

// Stop wakes the event loop and ends it.
func (s *Shell) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	s.screen.Fini()
}

// handleKey maps keys onto document operations and edits.
func (s *Shell) handleKey(ev *tcell.EventKey) error {
	m := s.app.Manager()

	switch ev.Key() {
	case tcell.KeyCtrlQ:
		return app.ErrQuit
	case tcell.KeyCtrlS:
		if err := s.app.Save(context.Background()); err != nil && !errors.Is(err, docmanager.ErrNoTarget) {
			s.app.Logger().Error("%v", err)
		}
	case tcell.KeyCtrlR:
		if err := s.app.Revert(context.Background()); err != nil && !errors.Is(err, docmanager.ErrNoTarget) {
			s.app.Logger().Error("%v", err)
		}
	case tcell.KeyCtrlW:
		m.Close()
		s.focusFirst()
	case tcell.KeyTab:
		s.focusNext()
	case tcell.KeyEnter:
		if tw := s.currentText(); tw != nil {
			tw.Insert("\n")
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if tw := s.currentText(); tw != nil {
			tw.DeleteLast()
		}
	case tcell.KeyRune:
		if tw := s.currentText(); tw != nil {
			tw.Insert(string(ev.Rune()))
		}
	}
	return nil
}

// currentText returns the current document's text widget, or nil.
func (s *Shell) currentText() *editor.TextWidget {
	w := s.app.CurrentWidget()
	if w == nil {
		return nil
	}
	tw, ok := w.(*editor.TextWidget)
	if !ok {
		return nil
	}
	return tw
}

// focusFirst focuses the first open document, if any.
func (s *Shell) focusFirst() {
	m := s.app.Manager()
	for _, p := range m.OpenPaths() {
		if w := m.FindWidget(p); w != nil {
			m.HandleFocus(widget.NewElement(w))
			return
		}
	}
}

// focusNext cycles focus to the next open document.
func (s *Shell) focusNext() {
	m := s.app.Manager()
	paths := m.OpenPaths()
	if len(paths) == 0 {
		return
	}

	cur := m.CurrentWidget()
	next := 0
	if cur != nil {
		for i, p := range paths {
			if w := m.FindWidget(p); w != nil && w.ID() == cur.ID() {
				next = (i + 1) % len(paths)
				break
			}
		}
	}
	if w := m.FindWidget(paths[next]); w != nil {
		m.HandleFocus(widget.NewElement(w))
	}
}

// draw renders the tab strip and the current document.
func (s *Shell) draw() {
	s.screen.Clear()
	width, height := s.screen.Size()

	m := s.app.Manager()
	cur := m.CurrentWidget()

	// Tab strip.
	tabStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	curStyle := tcell.StyleDefault.Bold(true)
	col := 0
	for _, p := range m.OpenPaths() {
		w := m.FindWidget(p)
		if w == nil {
			continue
		}
		style := tabStyle
		if cur != nil && w.ID() == cur.ID() {
			style = curStyle
		}
		label := " " + w.Title().Text()
		if w.Title().HasClass(widget.DirtyClass) {
			label += "*"
		}
		label += " |"
		col = drawString(s.screen, col, 0, width, label, style)
	}

	// Body.
	if tw := s.currentText(); tw != nil {
		for row, line := range tw.Lines() {
			if row+1 >= height {
				break
			}
			drawString(s.screen, 0, row+1, width, line, tcell.StyleDefault)
		}
	} else {
		drawString(s.screen, 0, 1, width, "no document (Ctrl-Q quits)", tabStyle)
	}

	s.screen.Show()
}

// drawString draws text at (x, y), clipped to width. Returns the next
// column.
func drawString(screen tcell.Screen, x, y, width int, text string, style tcell.Style) int {
	for _, r := range text {
		if x >= width {
			break
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}
