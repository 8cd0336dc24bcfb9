package app

import (
	"context"
	"fmt"

	"github.com/jupyter/jupyter-js-docmanager/internal/config"
	"github.com/jupyter/jupyter-js-docmanager/internal/contents"
	"github.com/jupyter/jupyter-js-docmanager/internal/docmanager"
	"github.com/jupyter/jupyter-js-docmanager/internal/editor"
	"github.com/jupyter/jupyter-js-docmanager/internal/event"
	"github.com/jupyter/jupyter-js-docmanager/internal/event/events"
	"github.com/jupyter/jupyter-js-docmanager/internal/script"
	"github.com/jupyter/jupyter-js-docmanager/internal/widget"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// Files are documents to open on startup.
	Files []string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// Root overrides the configured document root when non-empty.
	Root string
}

// Application wires the document manager together and owns the shared
// infrastructure: logger, event bus, contents backend, handlers, watcher,
// and the startup script.
type Application struct {
	cfg      config.Config
	log      *Logger
	bus      event.Bus
	svc      contents.Service
	manager  *docmanager.Manager
	handlers map[string]*docmanager.FileHandler
	watcher  *contents.Watcher
	script   *script.Host
	opts     Options
}

// New creates an application from the given options, bootstrapping all
// components in dependency order.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:     opts,
		handlers: make(map[string]*docmanager.FileHandler),
	}
	if err := app.bootstrap(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes components in dependency order: config, logger,
// bus, contents, manager and handlers, watcher, script, startup files.
func (app *Application) bootstrap() error {
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	if app.opts.LogLevel != "" {
		cfg.LogLevel = app.opts.LogLevel
	}
	if app.opts.Root != "" {
		cfg.Root = app.opts.Root
	}
	app.cfg = cfg

	logCfg := LoggerConfig{
		Level:  ParseLogLevel(cfg.LogLevel),
		Prefix: "docmanager",
	}
	if cfg.LogFile != "" {
		logCfg.Output = FileOutput(cfg.LogFile)
	}
	app.log = NewLogger(logCfg)

	app.bus = event.NewBus()

	if err := app.initContents(); err != nil {
		return err
	}

	app.manager = docmanager.NewManager(app.bus, docmanager.WithManagerLogger(app.log))
	text := docmanager.NewFileHandler("text", editor.NewText(), app.svc, app.bus,
		docmanager.WithLogger(app.log))
	app.handlers["text"] = text
	if err := app.manager.RegisterDefault(text); err != nil {
		return &InitError{Component: "manager", Err: err}
	}
	for ext, name := range cfg.Handlers {
		app.Route(ext, name)
	}

	if err := app.initWatcher(); err != nil {
		return err
	}

	if cfg.InitScript != "" {
		app.script = script.NewHost(app)
		if err := app.script.Run(cfg.InitScript); err != nil {
			return &InitError{Component: "script", Err: err}
		}
	}

	for _, path := range app.opts.Files {
		if err := app.Open(path); err != nil {
			app.log.Error("open %s: %v", path, err)
		}
	}
	return nil
}

// initContents creates the configured contents backend.
func (app *Application) initContents() error {
	switch app.cfg.Backend {
	case config.BackendLocal:
		local, err := contents.NewLocal(app.cfg.Root)
		if err != nil {
			return &InitError{Component: "contents", Err: err}
		}
		app.svc = local
	case config.BackendMemory:
		app.svc = contents.NewMemory()
	case config.BackendREST:
		app.svc = contents.NewREST(app.cfg.ServerURL, contents.WithToken(app.cfg.Token))
	default:
		return &InitError{Component: "contents", Err: fmt.Errorf("unknown backend %q", app.cfg.Backend)}
	}
	return nil
}

// initWatcher starts external-change watching for local backends and
// republishes changes on the bus.
func (app *Application) initWatcher() error {
	local, ok := app.svc.(*contents.Local)
	if !ok {
		return nil
	}

	w, err := contents.NewWatcher(local)
	if err != nil {
		return &InitError{Component: "watcher", Err: err}
	}
	w.OnChange(func(c contents.Change) {
		app.log.Debug("external change: %s %s", c.Kind, c.Path)
		ev := event.New(events.TopicContentsExternalChanged, events.ContentsExternalChanged{
			Path: c.Path,
			Kind: c.Kind.String(),
		}, "app")
		if err := app.bus.Publish(context.Background(), ev); err != nil {
			app.log.Error("publish external change: %v", err)
		}
	})
	app.watcher = w
	return nil
}

// Route binds a file extension to a named handler. Unknown names are
// logged and ignored.
func (app *Application) Route(ext, name string) {
	h, ok := app.handlers[name]
	if !ok {
		app.log.Warn("route %s: %v: %s", ext, ErrUnknownHandler, name)
		return
	}
	app.manager.Register(h, ext)
}

// Open opens a document by path through the manager.
func (app *Application) Open(path string) error {
	if _, err := app.manager.Open(contents.Model{Path: path}); err != nil {
		return &OperationError{Op: "open", Target: path, Err: err}
	}
	return nil
}

// Set applies a named option. Exposed to the startup script.
func (app *Application) Set(key, value string) error {
	switch key {
	case "log_level":
		app.log.SetLevel(ParseLogLevel(value))
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
}

// Save persists the current document.
func (app *Application) Save(ctx context.Context) error {
	if _, err := app.manager.Save(ctx); err != nil {
		return &OperationError{Op: "save", Err: err}
	}
	return nil
}

// Revert restores the current document from its persisted content.
func (app *Application) Revert(ctx context.Context) error {
	if _, err := app.manager.Revert(ctx); err != nil {
		return &OperationError{Op: "revert", Err: err}
	}
	return nil
}

// Manager returns the document manager.
func (app *Application) Manager() *docmanager.Manager {
	return app.manager
}

// Bus returns the event bus.
func (app *Application) Bus() event.Bus {
	return app.bus
}

// Contents returns the contents backend.
func (app *Application) Contents() contents.Service {
	return app.svc
}

// Logger returns the application logger.
func (app *Application) Logger() *Logger {
	return app.log
}

// Handler returns a registered handler by name, or nil.
func (app *Application) Handler(name string) *docmanager.FileHandler {
	return app.handlers[name]
}

// CurrentWidget returns the current document's widget, or nil.
func (app *Application) CurrentWidget() widget.Widget {
	return app.manager.CurrentWidget()
}

// Close shuts the application down: documents, watcher, script.
func (app *Application) Close() {
	if app.manager != nil {
		app.manager.CloseAll()
	}
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil && app.log != nil {
			app.log.Error("close watcher: %v", err)
		}
	}
	if app.script != nil {
		app.script.Close()
	}
}
