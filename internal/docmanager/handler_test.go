package docmanager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jupyter/jupyter-js-docmanager/internal/contents"
	"github.com/jupyter/jupyter-js-docmanager/internal/event"
	"github.com/jupyter/jupyter-js-docmanager/internal/event/events"
	"github.com/jupyter/jupyter-js-docmanager/internal/event/topic"
	"github.com/jupyter/jupyter-js-docmanager/internal/widget"
)

// stubWidget is a minimal text widget for handler tests.
type stubWidget struct {
	*widget.Base
	mu     sync.Mutex
	text   string
	onEdit func()
}

func (w *stubWidget) load(text string) {
	w.mu.Lock()
	w.text = text
	w.mu.Unlock()
}

func (w *stubWidget) edit(text string) {
	w.mu.Lock()
	w.text = text
	fn := w.onEdit
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (w *stubWidget) content() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.text
}

// stubEditor implements Editor over stubWidget.
type stubEditor struct{}

func (stubEditor) New(model contents.Model) widget.Widget {
	return &stubWidget{Base: widget.NewBase("")}
}

func (stubEditor) FetchOptions(model contents.Model) contents.GetOptions {
	return contents.GetOptions{Format: contents.FormatText}
}

func (stubEditor) Apply(w widget.Widget, model contents.Model, onEdit func()) error {
	sw := w.(*stubWidget)
	sw.load(model.Content)
	if onEdit != nil {
		sw.mu.Lock()
		sw.onEdit = onEdit
		sw.mu.Unlock()
	}
	return nil
}

func (stubEditor) Snapshot(w widget.Widget, base contents.Model) (contents.Model, error) {
	base.Content = w.(*stubWidget).content()
	base.Format = contents.FormatText
	return base, nil
}

// slowService wraps another service and gates Get/Save on channels so tests
// can hold operations in flight. entered channels signal that the operation
// reached the gate.
type slowService struct {
	contents.Service
	getGate     chan struct{}
	saveGate    chan struct{}
	saveEntered chan struct{}
}

func (s *slowService) Get(ctx context.Context, path string, opts contents.GetOptions) (contents.Model, error) {
	if s.getGate != nil {
		<-s.getGate
	}
	return s.Service.Get(ctx, path, opts)
}

func (s *slowService) Save(ctx context.Context, path string, model contents.Model) (contents.Model, error) {
	if s.saveEntered != nil {
		s.saveEntered <- struct{}{}
	}
	if s.saveGate != nil {
		<-s.saveGate
	}
	return s.Service.Save(ctx, path, model)
}

// countTopic subscribes to a topic and returns a counter plus a channel
// signaled on each delivery.
func countTopic(t *testing.T, bus event.Bus, tp topic.Topic) (*int32, chan struct{}) {
	t.Helper()
	var mu sync.Mutex
	count := new(int32)
	ch := make(chan struct{}, 16)
	_, err := bus.SubscribeFunc(tp, func(ctx context.Context, e any) error {
		mu.Lock()
		(*count)++
		mu.Unlock()
		ch <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe %s: %v", tp, err)
	}
	return count, ch
}

func waitSignal(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func newTestHandler(t *testing.T, opts ...HandlerOption) (*FileHandler, *contents.Memory, event.Bus) {
	t.Helper()
	svc := contents.NewMemory()
	bus := event.NewBus()
	h := NewFileHandler("text", stubEditor{}, svc, bus, opts...)
	return h, svc, bus
}

func openAndWait(t *testing.T, h *FileHandler, bus event.Bus, path string) widget.Widget {
	t.Helper()
	_, ready := countTopic(t, bus, events.TopicDocumentReady)
	w := h.Open(contents.Model{Path: path})
	waitSignal(t, ready, "document.ready")
	return w
}

func TestOpenReturnsSameWidgetForSamePath(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("aaa"))
	svc.Put("b.txt", []byte("bbb"))

	w1 := openAndWait(t, h, bus, "a.txt")
	w2 := h.Open(contents.Model{Path: "a.txt"})
	if w1.ID() != w2.ID() {
		t.Error("second open of the same path should return the same widget")
	}

	w3 := h.Open(contents.Model{Path: "b.txt"})
	if w3.ID() == w1.ID() {
		t.Error("different paths should get different widgets")
	}
}

func TestOpenPopulatesWidget(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("notes/a.txt", []byte("hello"))

	readyCount, ready := countTopic(t, bus, events.TopicDocumentReady)
	w := h.Open(contents.Model{Path: "notes/a.txt"})
	waitSignal(t, ready, "document.ready")

	if got := w.(*stubWidget).content(); got != "hello" {
		t.Errorf("widget content = %q, want %q", got, "hello")
	}
	if *readyCount != 1 {
		t.Errorf("ready count = %d, want 1", *readyCount)
	}

	if title := w.Title(); title.Text() != "a.txt" || !title.Closable() {
		t.Errorf("title = %q closable=%v, want a.txt closable", title.Text(), title.Closable())
	}
}

func TestDirtyLifecycle(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("v1"))

	dirtyCount, dirtyCh := countTopic(t, bus, events.TopicDocumentDirtyChanged)
	w := openAndWait(t, h, bus, "a.txt")
	sw := w.(*stubWidget)

	if h.IsDirty(w) {
		t.Error("fresh widget should not be dirty")
	}

	sw.edit("v2")
	waitSignal(t, dirtyCh, "dirty.changed")
	if !h.IsDirty(w) {
		t.Error("edit should mark dirty")
	}
	if !w.Title().HasClass(widget.DirtyClass) {
		t.Error("dirty class should be set")
	}

	sw.edit("v3")
	if *dirtyCount != 1 {
		t.Errorf("dirty events = %d, want 1 for repeated edits", *dirtyCount)
	}

	if _, err := h.Save(context.Background(), w); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if h.IsDirty(w) {
		t.Error("save should clear dirty")
	}
	if w.Title().HasClass(widget.DirtyClass) {
		t.Error("dirty class should be removed after save")
	}

	got, _ := svc.Get(context.Background(), "a.txt", contents.GetOptions{})
	if got.Content != "v3" {
		t.Errorf("persisted content = %q, want %q", got.Content, "v3")
	}
}

func TestRevertRestoresContent(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("disk"))

	w := openAndWait(t, h, bus, "a.txt")
	sw := w.(*stubWidget)
	sw.edit("scratch")
	if !h.IsDirty(w) {
		t.Fatal("edit should mark dirty")
	}

	model, err := h.Revert(context.Background(), w)
	if err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	if model.Content != "disk" {
		t.Errorf("reverted model content = %q", model.Content)
	}
	if sw.content() != "disk" {
		t.Errorf("widget content = %q, want %q", sw.content(), "disk")
	}
	if h.IsDirty(w) {
		t.Error("revert should clear dirty")
	}
}

func TestSaveResolvesActiveWidget(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("v1"))

	w := openAndWait(t, h, bus, "a.txt")
	w.(*stubWidget).edit("v2")

	if _, err := h.Save(context.Background(), nil); !errors.Is(err, ErrNoTarget) {
		t.Errorf("save with no active widget = %v, want ErrNoTarget", err)
	}

	h.HandleFocus(widget.NewElement(w))
	if _, err := h.Save(context.Background(), nil); err != nil {
		t.Fatalf("save via active widget failed: %v", err)
	}

	got, _ := svc.Get(context.Background(), "a.txt", contents.GetOptions{})
	if got.Content != "v2" {
		t.Errorf("persisted content = %q, want %q", got.Content, "v2")
	}
}

func TestSaveUnknownWidget(t *testing.T) {
	h, _, _ := newTestHandler(t)
	stray := &stubWidget{Base: widget.NewBase("stray")}
	if _, err := h.Save(context.Background(), stray); !errors.Is(err, ErrNotOpen) {
		t.Errorf("save of unregistered widget = %v, want ErrNotOpen", err)
	}
}

func TestSaveKeepsDirtyAfterConcurrentEdit(t *testing.T) {
	svc := contents.NewMemory()
	svc.Put("a.txt", []byte("v1"))
	slow := &slowService{Service: svc, saveGate: make(chan struct{}), saveEntered: make(chan struct{})}
	bus := event.NewBus()
	h := NewFileHandler("text", stubEditor{}, slow, bus)

	w := openAndWait(t, h, bus, "a.txt")
	sw := w.(*stubWidget)
	sw.edit("v2")

	done := make(chan error, 1)
	go func() {
		_, err := h.Save(context.Background(), w)
		done <- err
	}()
	<-slow.saveEntered

	// Edit while the save is held in flight.
	sw.edit("v3")
	close(slow.saveGate)

	if err := <-done; err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !h.IsDirty(w) {
		t.Error("dirty should survive a save raced by an edit")
	}
	if !w.Title().HasClass(widget.DirtyClass) {
		t.Error("dirty class should survive a save raced by an edit")
	}
}

func TestCloseDisposesAndUnregisters(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("v1"))

	closedCount, closedCh := countTopic(t, bus, events.TopicDocumentClosed)
	w := openAndWait(t, h, bus, "a.txt")

	if !h.Close(w) {
		t.Fatal("Close should return true for an open widget")
	}
	waitSignal(t, closedCh, "document.closed")

	if !w.IsDisposed() {
		t.Error("close should dispose the widget")
	}
	if h.FindWidget("a.txt") != nil {
		t.Error("closed path should be unregistered")
	}
	if h.Close(w) {
		t.Error("second close should return false")
	}
	if *closedCount != 1 {
		t.Errorf("closed events = %d, want 1", *closedCount)
	}
}

func TestCloseRequestRoutesThroughHandler(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("v1"))

	w := openAndWait(t, h, bus, "a.txt")
	w.RequestClose()

	if h.FindWidget("a.txt") != nil {
		t.Error("close request should close the session")
	}
	if !w.IsDisposed() {
		t.Error("close request should dispose the widget")
	}
}

func TestCloseGuardVeto(t *testing.T) {
	vetoes := 0
	guard := func(w widget.Widget, model contents.Model) bool {
		vetoes++
		return false
	}
	h, svc, bus := newTestHandler(t, WithCloseGuard(guard))
	svc.Put("a.txt", []byte("v1"))
	svc.Put("b.txt", []byte("v1"))

	dirty := openAndWait(t, h, bus, "a.txt")
	dirty.(*stubWidget).edit("v2")
	clean := openAndWait(t, h, bus, "b.txt")

	if h.Close(dirty) {
		t.Error("guard veto should block close")
	}
	if h.FindWidget("a.txt") == nil || dirty.IsDisposed() {
		t.Error("vetoed widget should stay open")
	}

	if !h.Close(clean) {
		t.Error("clean widget should close without consulting the guard")
	}
	if vetoes != 1 {
		t.Errorf("guard consulted %d times, want 1", vetoes)
	}
}

func TestCloseClearsActiveWidget(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("v1"))

	w := openAndWait(t, h, bus, "a.txt")
	h.HandleFocus(widget.NewElement(w))
	if h.ActiveWidget() == nil {
		t.Fatal("focus should set the active widget")
	}

	h.Close(w)
	if h.ActiveWidget() != nil {
		t.Error("close should clear the active widget")
	}
}

func TestCloseAll(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("a"))
	svc.Put("b.txt", []byte("b"))

	wa := openAndWait(t, h, bus, "a.txt")
	wb := openAndWait(t, h, bus, "b.txt")

	h.CloseAll()
	if !wa.IsDisposed() || !wb.IsDisposed() {
		t.Error("CloseAll should dispose every widget")
	}
	if got := h.OpenPaths(); len(got) != 0 {
		t.Errorf("open paths after CloseAll = %v", got)
	}
}

func TestRenameViaTitle(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("dir/old.txt", []byte("body"))

	renamedCount, renamedCh := countTopic(t, bus, events.TopicDocumentRenamed)
	w := openAndWait(t, h, bus, "dir/old.txt")

	w.Title().SetText("new.txt")
	waitSignal(t, renamedCh, "document.renamed")

	if p, ok := h.Path(w); !ok || p != "dir/new.txt" {
		t.Errorf("bound path = %q ok=%v, want dir/new.txt", p, ok)
	}
	if h.FindWidget("dir/new.txt") == nil {
		t.Error("widget should be registered under the new path")
	}
	if h.FindWidget("dir/old.txt") != nil {
		t.Error("old path should be unregistered")
	}
	if !svc.Exists("dir/new.txt") || svc.Exists("dir/old.txt") {
		t.Error("service should hold the renamed file only")
	}
	if *renamedCount != 1 {
		t.Errorf("renamed events = %d, want 1", *renamedCount)
	}
}

func TestRenameFailureKeepsBinding(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("a"))
	svc.Put("b.txt", []byte("b"))

	w := openAndWait(t, h, bus, "a.txt")
	w.Title().SetText("b.txt")

	if p, ok := h.Path(w); !ok || p != "a.txt" {
		t.Errorf("bound path after failed rename = %q, want a.txt", p)
	}
	if h.FindWidget("a.txt") == nil {
		t.Error("widget should stay registered under the old path")
	}
}

func TestFocusActivatedOnce(t *testing.T) {
	h, svc, bus := newTestHandler(t)
	svc.Put("a.txt", []byte("a"))
	svc.Put("b.txt", []byte("b"))

	activated, activatedCh := countTopic(t, bus, events.TopicDocumentActivated)
	wa := openAndWait(t, h, bus, "a.txt")
	wb := openAndWait(t, h, bus, "b.txt")

	if !h.HandleFocus(widget.NewElement(wa)) {
		t.Fatal("focus inside wa should be claimed")
	}
	waitSignal(t, activatedCh, "document.activated")

	if !h.HandleFocus(widget.NewElement(wb)) {
		t.Fatal("focus inside wb should be claimed")
	}
	if h.ActiveWidget().ID() != wb.ID() {
		t.Error("active widget should follow focus")
	}
	if *activated != 1 {
		t.Errorf("activated events = %d, want 1 while a widget stays active", *activated)
	}

	if h.HandleFocus(widget.NewElement(nil)) {
		t.Error("focus outside any widget should not be claimed")
	}
	if h.ActiveWidget().ID() != wb.ID() {
		t.Error("unclaimed focus should leave the active widget alone")
	}

	h.CloseAll()
	wc := openAndWait(t, h, bus, "a.txt")
	h.HandleFocus(widget.NewElement(wc))
	waitSignal(t, activatedCh, "second document.activated")
	if *activated != 2 {
		t.Errorf("activated events = %d, want 2 after active was cleared", *activated)
	}
}

func TestStaleFetchDiscardedAfterClose(t *testing.T) {
	svc := contents.NewMemory()
	svc.Put("a.txt", []byte("v1"))
	slow := &slowService{Service: svc, getGate: make(chan struct{})}
	bus := event.NewBus()
	h := NewFileHandler("text", stubEditor{}, slow, bus)

	readyCount, readyCh := countTopic(t, bus, events.TopicDocumentReady)
	w := h.Open(contents.Model{Path: "a.txt"})

	if !h.Close(w) {
		t.Fatal("close before population should succeed")
	}
	close(slow.getGate)

	select {
	case <-readyCh:
		t.Error("stale population should not emit document.ready")
	case <-time.After(200 * time.Millisecond):
	}
	if *readyCount != 0 {
		t.Errorf("ready events = %d, want 0", *readyCount)
	}
	if got := w.(*stubWidget).content(); got != "" {
		t.Errorf("closed widget content = %q, want empty", got)
	}
}

func TestRevertSupersedesInFlightSave(t *testing.T) {
	svc := contents.NewMemory()
	svc.Put("a.txt", []byte("v1"))
	slow := &slowService{Service: svc, saveGate: make(chan struct{}), saveEntered: make(chan struct{})}
	bus := event.NewBus()
	h := NewFileHandler("text", stubEditor{}, slow, bus)

	w := openAndWait(t, h, bus, "a.txt")
	sw := w.(*stubWidget)
	sw.edit("v2")

	done := make(chan error, 1)
	go func() {
		_, err := h.Save(context.Background(), w)
		done <- err
	}()
	<-slow.saveEntered

	// Revert while the save is held in flight; its completion is stale.
	if _, err := h.Revert(context.Background(), w); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	sw.edit("post-revert")
	close(slow.saveGate)
	if err := <-done; err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !h.IsDirty(w) {
		t.Error("stale save completion should not clear dirty")
	}
}
