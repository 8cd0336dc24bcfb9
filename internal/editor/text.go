package editor

import (
	"errors"
	"path"

	"github.com/jupyter/jupyter-js-docmanager/internal/contents"
	"github.com/jupyter/jupyter-js-docmanager/internal/widget"
)

// ErrNotTextWidget indicates a widget handed to the text editor hooks was
// not created by them.
var ErrNotTextWidget = errors.New("widget is not a text widget")

// Text supplies the document manager's editor hooks for plain text files:
// text-format fetches, buffer population, and buffer snapshots.
type Text struct{}

// NewText creates the plain-text editor hooks.
func NewText() Text {
	return Text{}
}

// New creates a text widget titled with the file's base name, with the
// editing mode detected from the path.
func (Text) New(model contents.Model) widget.Widget {
	name := model.Name
	if name == "" {
		name = path.Base(model.Path)
	}
	w := NewTextWidget(name)
	w.SetMode(DetectMode(model.Path))
	return w
}

// FetchOptions requests text-format file content.
func (Text) FetchOptions(model contents.Model) contents.GetOptions {
	return contents.GetOptions{Format: contents.FormatText, Type: contents.TypeFile}
}

// Apply loads the model content into the buffer and hooks up edit
// notification.
func (Text) Apply(w widget.Widget, model contents.Model, onEdit func()) error {
	tw, ok := w.(*TextWidget)
	if !ok {
		return ErrNotTextWidget
	}
	tw.Load(model.Content)
	if onEdit != nil {
		tw.OnChange(onEdit)
	}
	return nil
}

// Snapshot captures the buffer as a text-format model for saving.
func (Text) Snapshot(w widget.Widget, base contents.Model) (contents.Model, error) {
	tw, ok := w.(*TextWidget)
	if !ok {
		return contents.Model{}, ErrNotTextWidget
	}
	base.Content = tw.Text()
	base.Format = contents.FormatText
	base.Type = contents.TypeFile
	return base, nil
}
