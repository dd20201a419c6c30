package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/echopipe/internal/config"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/hostinfo"
)

// Global is shared state passed to every subcommand.
type Global struct {
	Out io.Writer

	host    hostinfo.Collector
	logFile io.Closer
}

// NewGlobal returns a Global writing command output to stdout.
func NewGlobal() *Global {
	return &Global{Out: os.Stdout}
}

// Close releases the log file opened for the run, if any.
func (g *Global) Close() error {
	if g.logFile == nil {
		return nil
	}
	err := g.logFile.Close()
	g.logFile = nil
	return err
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"echopipe.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" help:"Execute one request through the pipeline"`
	Batch    BatchCmd    `cmd:"" help:"Execute a list of requests with consecutive iterations"`
	Bench    BenchCmd    `cmd:"" help:"Execute one request repeatedly and report throughput"`
	Watch    WatchCmd    `cmd:"" help:"Execute request files dropped into an inbox directory"`
	Schedule ScheduleCmd `cmd:"" help:"Execute a request list periodically"`
	Report   ReportCmd   `cmd:"" help:"Show the performance report"`
	Summary  SummaryCmd  `cmd:"" help:"Show the execution summary"`
	Health   HealthCmd   `cmd:"" help:"Show monitor health"`
	History  HistoryCmd  `cmd:"" help:"Manage execution history"`
	Records  RecordsCmd  `cmd:"" help:"Inspect persisted execution records"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; set up a stderr logger until the
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig reads the root configuration and applies its logging section.
// --verbose wins over the configured level.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(g, cfg.Logging, root.Verbose); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(g *Global, lc config.LoggingConfig, verbose bool) error {
	level := config.NormalizeLogLevel(string(lc.Level)).SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	if lc.File != "" {
		if err := os.MkdirAll(filepath.Dir(lc.File), 0o750); err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "create log directory").
				WithContext("path", lc.File).
				Build()
		}
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "open log file").
				WithContext("path", lc.File).
				Build()
		}
		_ = g.Close()
		g.logFile = f
		w = io.MultiWriter(os.Stderr, f)
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if config.NormalizeLogFormat(string(lc.Format)) == config.LogFormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
