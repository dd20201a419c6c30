package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/echopipe/internal/config"
	"git.home.luguber.info/inful/echopipe/internal/content"
	"git.home.luguber.info/inful/echopipe/internal/convert"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/generator"
	"git.home.luguber.info/inful/echopipe/internal/hostinfo"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
	"git.home.luguber.info/inful/echopipe/internal/metrics"
	"git.home.luguber.info/inful/echopipe/internal/monitor"
	"git.home.luguber.info/inful/echopipe/internal/output"
	"git.home.luguber.info/inful/echopipe/internal/pipeline"
	"git.home.luguber.info/inful/echopipe/internal/quality"
	"git.home.luguber.info/inful/echopipe/internal/retry"
	"git.home.luguber.info/inful/echopipe/internal/storage"
	"git.home.luguber.info/inful/echopipe/internal/transform"
)

// Runtime is the wired pipeline for one command invocation.
type Runtime struct {
	Config       *config.Config
	Monitor      *monitor.Monitor
	Orchestrator *pipeline.Orchestrator
	Registry     *prom.Registry

	closers []func() error
}

// runtimeOptions tune newRuntime for tests.
type runtimeOptions struct {
	host hostinfo.Collector
}

// newRuntime wires storage, the monitor and the orchestrator from cfg and
// loads persisted history into the monitor.
func newRuntime(ctx context.Context, cfg *config.Config, opts runtimeOptions) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Registry: metrics.NewRegistry()}
	recorder := metrics.NewPrometheusRecorder(rt.Registry)

	backend, err := openBackend(ctx, cfg.Monitor)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, backend.Close)

	var publisher monitor.Publisher
	if cfg.Monitor.NATS.Enabled {
		pub, err := monitor.NewNATSPublisher(ctx, monitor.NATSOptions{
			URL:     cfg.Monitor.NATS.URL,
			Subject: cfg.Monitor.NATS.Subject,
			Stream:  cfg.Monitor.NATS.Stream,
			Timeout: cfg.Monitor.NATS.Timeout,
		})
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		publisher = pub
		rt.closers = append(rt.closers, pub.Close)
	}

	rt.Monitor = monitor.New(monitor.Options{
		HistoryLimit: cfg.Monitor.HistoryLimit,
		Backend:      backend,
		Publisher:    publisher,
		Host:         opts.host,
		Recorder:     recorder,
	})
	if n, err := rt.Monitor.Load(ctx); err != nil {
		slog.Warn("Execution history not loaded", logfields.Error(err))
	} else if n > 0 {
		slog.Debug("Execution history loaded", slog.Int("records", n), slog.String("backend", backend.Name()))
	}

	local, err := storage.NewFSStore(cfg.Formatter.OutputDir)
	if err != nil {
		_ = rt.Close()
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "create output directory").
			WithContext("path", cfg.Formatter.OutputDir).
			Build()
	}
	var mirror storage.Store
	if s3 := cfg.Formatter.S3; s3.Enabled {
		store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			Prefix:    s3.Prefix,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			_ = rt.Close()
			return nil, derrors.WrapError(err, derrors.CategoryConfig, "configure s3 mirror").Build()
		}
		mirror = store
		rt.closers = append(rt.closers, store.Close)
	}

	formats := make([]content.Format, 0, len(cfg.Transformer.Formats))
	for _, f := range cfg.Transformer.Formats {
		formats = append(formats, content.Format(f))
	}

	rt.Orchestrator = pipeline.New(
		generator.New(generator.Options{
			Model:       cfg.Generator.Model,
			MaxTokens:   cfg.Generator.MaxTokens,
			Temperature: cfg.Generator.Temperature,
			Truncation:  generator.Truncation(cfg.Generator.Truncation),
		}),
		transform.New(convert.New(), formats),
		quality.New(quality.Options{
			Threshold:        cfg.Validator.QualityThreshold,
			ConsistencyCheck: cfg.Validator.ConsistencyCheck,
			Scoring:          cfg.Validator.Scoring.Policy(),
		}),
		output.New(local, cfg.Formatter.NamingConvention, mirror),
		rt.Monitor,
		pipeline.WithRecorder(recorder),
		pipeline.WithStageLatency(cfg.Pipeline.StageLatency),
		pipeline.WithOutputRetry(retry.FromConfig(cfg.Pipeline.OutputRetry)),
	)
	return rt, nil
}

func openBackend(ctx context.Context, mc config.MonitorConfig) (monitor.Backend, error) {
	switch config.NormalizeMonitorBackend(string(mc.Backend)) {
	case config.MonitorBackendMemory:
		return monitor.NewMemoryBackend(), nil
	case config.MonitorBackendSQLite:
		dsn := mc.DSN
		if dsn == "" {
			dsn = filepath.Join(mc.MetricsDir, "monitor.db")
		}
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
				return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "create monitor database directory").
					WithContext("path", dsn).
					Build()
			}
		}
		b, err := monitor.OpenSQL(ctx, monitor.DriverSQLite, dsn, mc.CacheSize)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.MonitorBackendPostgres:
		b, err := monitor.OpenSQL(ctx, monitor.DriverPostgres, mc.DSN, mc.CacheSize)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		b, err := monitor.NewFileBackend(mc.MetricsDir)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// Close releases every resource opened by newRuntime, last opened first.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// ServeMetrics exposes the Prometheus registry on addr until ctx is done.
// An empty addr disables the endpoint.
func (rt *Runtime) ServeMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(rt.Registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("Serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// withRuntime loads the configuration, wires a Runtime and runs fn with it.
func withRuntime(ctx context.Context, g *Global, root *CLI, fn func(*Runtime) error) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx, cfg, runtimeOptions{host: g.host})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			slog.Warn("Failed to close runtime", logfields.Error(cerr))
		}
	}()
	return fn(rt)
}
