// File: internal/app/app.go
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"patrol.module/internal/colors"
	"patrol.module/internal/config"
	"patrol.module/internal/constants"
	"patrol.module/internal/crash"
	"patrol.module/internal/errors"
	"patrol.module/internal/shutdown"
	"patrol.module/internal/syslog"
	"patrol.module/internal/terminal"
)

// Options configure New.
type Options struct {
	Stdout       io.Writer
	Stderr       io.Writer
	// Version is reported in the startup log.
	Version      string
	// WatchSignals makes SIGINT and SIGTERM end Run.
	WatchSignals bool
	// Main is the work Run does after startup. The default waits for ctx.
	Main         func(ctx context.Context) error
}

// App owns everything a running patrol process holds: configuration, the
// process log, the fault handler, the crash handler and the resources to
// release on exit.
type App struct {
	parser   *terminal.Parser
	loader   *config.Loader
	cfg      atomic.Pointer[config.Config]
	level    *slog.LevelVar
	logger   *slog.Logger
	sink     *syslog.Sink
	faults   *errors.Handler
	crash    *crash.Handler
	shutdown *shutdown.Manager
	stdout   io.Writer
	version  string
	main     func(ctx context.Context) error
}

// New starts the process services from the parsed startup arguments. The
// returned app must be released with Shutdown, which Run does itself.
func New(ctx context.Context, p *terminal.Parser, opts Options) (*App, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	loader := config.NewLoader(p.HomePath, p.SafeMode)
	cfg, err := loader.Load()
	if err != nil {
		return nil, errors.NewConfigLoadError(loader.Home(), err)
	}
	applyOverrides(cfg, p)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	level := new(slog.LevelVar)
	level.Set(syslog.LevelFor(cfg.Verbosity))

	logOut, logFormat := opts.Stderr, cfg.LogFormat
	var logFile *os.File
	if cfg.LogFile != "" {
		logFile, err = syslog.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, errors.FromOSError(err, cfg.LogFile)
		}
		logOut, logFormat = logFile, constants.FormatJSON
	}
	logger, sink := syslog.New(syslog.Options{
		Level:      level,
		Format:     logFormat,
		Output:     logOut,
		MaxEntries: cfg.MaxLogEntries,
	})
	slog.SetDefault(logger)

	faults := errors.NewHandler(logger, opts.Stderr, nil)
	faults.SetVerbosity(cfg.Verbosity)
	errors.InitHandler(faults)

	mgr := shutdown.NewManager(ctx, logger, opts.WatchSignals)
	if logFile != nil {
		mgr.RegisterFunc("log file "+cfg.LogFile, logFile.Close)
	}

	ch, err := crash.Install(crash.Options{
		Dir:      cfg.DumpPath,
		Logger:   logger,
		Disabled: !cfg.CrashReporting,
	})
	if err != nil {
		faults.Handle(err)
		ch, _ = crash.Install(crash.Options{Dir: cfg.DumpPath, Logger: logger, Disabled: true})
	}
	mgr.RegisterFunc("crash handler", ch.Shutdown)

	a := &App{
		parser:   p,
		loader:   loader,
		level:    level,
		logger:   logger,
		sink:     sink,
		faults:   faults,
		crash:    ch,
		shutdown: mgr,
		stdout:   opts.Stdout,
		version:  opts.Version,
		main:     opts.Main,
	}
	if a.main == nil {
		a.main = waitForShutdown
	}
	a.cfg.Store(cfg)
	loader.Watch(a.reload)
	return a, nil
}

// applyOverrides lays the command line over the loaded settings.
func applyOverrides(cfg *config.Config, p *terminal.Parser) {
	cfg.Verbosity += p.Verbosity
	if p.LogFile != "" {
		cfg.LogFile = p.LogFile
	}
}

func (a *App) reload(cfg *config.Config) {
	applyOverrides(cfg, a.parser)
	a.cfg.Store(cfg)
	a.faults.SetVerbosity(cfg.Verbosity)
	a.level.Set(syslog.LevelFor(cfg.Verbosity))
	a.logger.Info("Configuration reloaded", slog.Int("verbosity", cfg.Verbosity))
}

// Run announces startup, runs the main work and then releases the app.
// The default main work blocks until the context passed to New is cancelled
// or a shutdown signal arrives.
//
// A panic escapes Run without releasing anything, so the crash handler is
// still installed when the caller's deferred Recover sees it.
func (a *App) Run() error {
	cfg := a.Config()
	a.logger.Info("Starting patrol",
		slog.String("version", a.version),
		slog.String("home", cfg.HomePath),
		slog.Bool("safe_mode", cfg.SafeMode),
		slog.Int("verbosity", cfg.Verbosity),
		slog.Bool("crash_reporting", a.crash.Installed()),
	)
	for _, tok := range a.parser.Ignored {
		a.logger.Debug("Ignoring unrecognised argument", slog.String("token", tok))
	}

	if !a.parser.Silent {
		a.printBanner(cfg)
	}

	err := a.main(a.shutdown.Context())
	a.logger.Info("Shutting down")
	if serr := a.Shutdown(); err == nil {
		err = serr
	}
	return err
}

func waitForShutdown(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (a *App) printBanner(cfg *config.Config) {
	c := colors.For(a.stdout)
	mode := ""
	if cfg.SafeMode {
		mode = c.Warning(" (safe mode)")
	}
	fmt.Fprintf(a.stdout, "%s %s%s\n", c.Bold("patrol"), a.version, mode)

	if n := a.previousCrashes(cfg.DumpPath); n > 0 {
		fmt.Fprintln(a.stdout, c.Warning(fmt.Sprintf("%d crash report(s) from earlier runs. Run 'patrol crash list' to inspect them.", n)))
	}
	fmt.Fprintln(a.stdout, c.Dim("Press Ctrl+C to exit."))
}

func (a *App) previousCrashes(dir string) int {
	entries, err := crash.NewStore(dir).List()
	if err != nil {
		a.logger.Debug("Could not read dump directory", slog.String("dump_path", dir), slog.Any("error", err))
		return 0
	}
	own := a.crash.CrashFile()
	n := 0
	for _, e := range entries {
		if e.Path != own {
			n++
		}
	}
	return n
}

// Shutdown releases the app's resources. It is safe to call more than once.
func (a *App) Shutdown() error {
	return a.shutdown.Shutdown()
}

// Config returns the settings in effect.
func (a *App) Config() *config.Config { return a.cfg.Load() }

// Logger returns the process logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Sink returns the in-memory record of the process log.
func (a *App) Sink() *syslog.Sink { return a.sink }

// Faults returns the fault handler.
func (a *App) Faults() *errors.Handler { return a.faults }

// Crash returns the crash handler. It is never nil.
func (a *App) Crash() *crash.Handler { return a.crash }

// Context is done once the app is shutting down.
func (a *App) Context() context.Context { return a.shutdown.Context() }
