package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dota-timeslice/replay-sampler/internal/clock"
	"github.com/dota-timeslice/replay-sampler/internal/config"
	"github.com/dota-timeslice/replay-sampler/internal/logging"
	"github.com/dota-timeslice/replay-sampler/internal/metrics"
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/internal/monitor"
	intOtel "github.com/dota-timeslice/replay-sampler/internal/otel"
	"github.com/dota-timeslice/replay-sampler/internal/sampler"
	"github.com/dota-timeslice/replay-sampler/internal/source"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// build info - set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	BinaryName string = "replay_sampler"
)

// exit codes
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage(fs *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <replay> <interval-seconds> <output>\n\nFlags:\n", BinaryName)
		fs.PrintDefaults()
	}
}

// parseInterval accepts a positive integer number of seconds.
func parseInterval(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: got %q", clock.ErrInvalidInterval, raw)
	}
	return n, nil
}

func run(args []string) int {
	fs := pflag.NewFlagSet(BinaryName, pflag.ContinueOnError)
	configDir := fs.String("config-dir", ".", "directory holding "+config.FileName)
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Bool("compress", false, "gzip the snapshot output")
	fs.Bool("abilities", false, "include learned abilities in player records")
	fs.Usage = usage(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return exitUsage
	}
	replayPath, outputPath := fs.Arg(0), fs.Arg(2)
	interval, err := parseInterval(fs.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	cfgErr := config.Load(*configDir)
	if err := config.BindFlags(fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	startedAt := time.Now()
	logLevel := viper.GetString("logLevel")
	logsDir := viper.GetString("logsDir")

	logFile, otelFile, fileErr := openLogFiles(logsDir, startedAt)
	defer closeQuietly(logFile)
	defer closeQuietly(otelFile)

	otelProvider, otelErr := setupOTel(replayPath, otelFile)

	// bound once the sampler exists so log records carry the match position;
	// records are logged from the runner, monitor and websocket goroutines.
	var bound atomic.Pointer[sampler.Sampler]
	replayName := filepath.Base(replayPath)
	logOpts := []logging.Option{
		logging.WithContext(func() []slog.Attr {
			attrs := []slog.Attr{slog.String("replay", replayName)}
			if s := bound.Load(); s != nil {
				attrs = append(attrs, s.LogAttrs()...)
			}
			return attrs
		}),
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		logOpts = append(logOpts, logging.WithGraylog(gl.Address))
	}

	slogManager := logging.NewSlogManager()
	var logOut io.Writer
	if logFile != nil {
		logOut = io.MultiWriter(os.Stdout, logFile)
	}
	slogManager.Setup(logOut, logLevel, otelProvider.LoggerProvider(), logOpts...)
	logger := slogManager.Logger()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if err := slogManager.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}()

	if cfgErr != nil {
		logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		logger.Info("Loaded config", "dir", *configDir)
	}
	if fileErr != nil {
		logger.Warn("Failed to open log files, logging to stdout only", "error", fileErr)
	}
	if otelErr != nil {
		logger.Warn("OpenTelemetry disabled", "error", otelErr)
	}

	logger.Info("Starting sampler",
		"version", CurrentVersion,
		"buildDate", BuildDate,
		"replay", replayPath,
		"interval", interval,
		"output", outputPath)

	m := metrics.New()
	zlog := logging.NewZerolog(zerologOutput(logFile), logLevel)

	err = sample(logger, job{
		replay:   replayPath,
		output:   outputPath,
		interval: interval,
		metrics:  m,
		zlog:     zlog,
	}, bound.Store)

	took := time.Since(startedAt)
	m.Finish(took, err == nil)
	if path := config.GetMetricsConfig().Textfile; path != "" {
		if werr := m.WriteTextfile(path); werr != nil {
			logger.Warn("Failed to write metrics", "path", path, "error", werr)
		}
	}

	if err != nil {
		logger.Error("Sampling failed", "error", err, "duration", took)
		fmt.Fprintf(os.Stderr, "failed to sample %s: %v\n", replayPath, err)
		return exitFatal
	}
	return exitOK
}

// job is one sampling run.
type job struct {
	replay   string
	output   string
	interval int
	metrics  *metrics.Metrics
	zlog     zerolog.Logger
}

// sample drives the replay through the sampler. The storage backends are
// closed on every path once they were initialized.
func sample(logger *slog.Logger, j job, bind func(*sampler.Sampler)) (err error) {
	startedAt := time.Now()

	backend, err := createStorageBackend(logger, j)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Debug("Storage backends initialized", "count", backend.Len())
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close storage: %w", cerr))
		}
	}()

	match := &core.Match{Replay: j.replay, Interval: j.interval, StartedAt: startedAt.UTC()}
	if err := backend.StartMatch(match); err != nil {
		return fmt.Errorf("failed to start match: %w", err)
	}

	s, err := sampler.New(backend, sampler.Options{
		Interval:         j.interval,
		IncludeAbilities: config.GetSamplerConfig().IncludeAbilities,
		Logger:           logger,
		Recorder:         j.metrics,
	})
	if err != nil {
		return err
	}
	bind(s)

	monitorCfg := config.GetMonitorConfig()
	mon := monitor.NewService(monitor.Dependencies{
		Logger:     logger,
		Source:     j.metrics,
		Replay:     filepath.Base(j.replay),
		StatusPath: monitorCfg.StatusFile,
		Interval:   monitorCfg.Interval,
	})
	mon.Start()
	runErr := source.NewRunner(j.replay, logger).Run(s)
	mon.Stop()
	if endErr := backend.EndMatch(); endErr != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to end match: %w", endErr))
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("Finished sampling replay",
		"samples", s.Samples(),
		"duration", time.Since(startedAt).String())
	return nil
}

// openLogFiles creates the run log and the OTel export file in logsDir.
func openLogFiles(logsDir string, startedAt time.Time) (logFile, otelFile *os.File, err error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs dir: %w", err)
	}

	path := logging.LogFilePath(logsDir, BinaryName, startedAt)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	logFile, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	if !config.GetOTelConfig().Enabled {
		return logFile, nil, nil
	}
	otelPath := strings.TrimSuffix(path, ".log") + ".otel.jsonl"
	otelFile, err = os.OpenFile(otelPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return logFile, nil, fmt.Errorf("failed to open otel log file: %w", err)
	}
	return logFile, otelFile, nil
}

// setupOTel returns a usable provider even on failure; a failed provider is
// disabled.
func setupOTel(replayPath string, w *os.File) (*intOtel.Provider, error) {
	cfg := config.GetOTelConfig()
	var writer io.Writer
	if w != nil {
		writer = w
	}
	p, err := intOtel.New(intOtel.Config{
		Enabled:        cfg.Enabled,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: CurrentVersion,
		Replay:         filepath.Base(replayPath),
		BatchTimeout:   cfg.BatchTimeout,
		LogWriter:      writer,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
	})
	if err != nil {
		disabled, _ := intOtel.New(intOtel.Config{})
		return disabled, err
	}
	return p, nil
}

func zerologOutput(logFile *os.File) io.Writer {
	if logFile != nil {
		return logFile
	}
	return os.Stdout
}

func closeQuietly(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
