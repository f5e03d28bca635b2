package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salahayoub/bonsai/pkg/engine"
	"github.com/salahayoub/bonsai/pkg/health"
	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/node"
	"github.com/salahayoub/bonsai/pkg/storage"
	"github.com/salahayoub/bonsai/pkg/tui"
)

// session wires one controller run: logging, runtime, exporters and the
// optional dashboard.
type session struct {
	cfg        *Config
	configPath string
	network    engine.Network

	capture  *logging.Capture
	logFile  *os.File
	ctrl     *node.Controller
	runtime  *node.Runtime
	exporter *exporter
	health   *health.Server
	watcher  *configWatcher
}

// newSession sets up logging and every collaborator. The dashboard keeps
// logs off the console since it owns the terminal.
func newSession(cfg *Config, configPath string, network engine.Network, dashboard bool) (*session, error) {
	s := &session{
		cfg:        cfg,
		configPath: configPath,
		network:    network,
		capture:    logging.NewCapture(cfg.Log.Capacity),
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	var out io.Writer
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		s.logFile = f
		out = f
	} else if !dashboard {
		out = os.Stderr
	}
	logging.Setup(logging.Options{Level: level, Format: cfg.Log.Format, Output: out, Capture: s.capture})

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s.ctrl = node.NewController(node.Options{
		Launcher:           s.launcher(),
		Resolve:            s.resolve,
		Capture:            s.capture,
		TickInterval:       cfg.Polling.TickInterval,
		StatisticsInterval: cfg.Polling.StatisticsInterval,
	})
	s.runtime = node.NewRuntime(s.ctrl)

	if addr := cfg.Exporter.HTTPAddress; addr != "" {
		if s.exporter, err = newExporter(addr, network.String()); err != nil {
			s.close()
			return nil, err
		}
		s.runtime.Observe(s.exporter.Observer(s.ctrl, network.String()))
	}
	if addr := cfg.Exporter.GRPCAddress; addr != "" {
		if s.health, err = health.NewServer(addr); err != nil {
			s.close()
			return nil, err
		}
		s.runtime.Observe(func(node.Message) { s.health.Observe(s.ctrl.Status()) })
	}
	if configPath != "" {
		if s.watcher, err = watchConfig(configPath); err != nil {
			logging.Warn("config hot reload disabled", logging.Component("config"), logging.Err(err))
		}
	}
	return s, nil
}

func (s *session) launcher() engine.Launcher {
	if s.cfg.Engine.Attach {
		return engine.AttachLauncher{}
	}
	return engine.NewFlorestaLauncher()
}

// resolve reads the persisted settings at every start, so edits made with
// `bonsai settings` apply on the next restart.
func (s *session) resolve(ctx context.Context) (engine.NodeConfig, error) {
	nc := s.cfg.NodeConfig(s.network)

	store, err := storage.Open(s.cfg.SettingsPath())
	if err != nil {
		return nc, err
	}
	defer store.Close()

	settings, err := store.Load(s.network)
	if err != nil {
		return nc, err
	}
	settings.Apply(&nc)

	if err := os.MkdirAll(nc.DataDir, 0755); err != nil {
		return nc, fmt.Errorf("failed to create node data directory: %w", err)
	}
	return nc, nil
}

// run drives the runtime until the controller finishes. Signals request a
// graceful close; a second signal cancels everything.
func (s *session) run(ctx context.Context, dashboard bool) error {
	defer s.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var app *tui.App
	if dashboard {
		app = tui.NewApp(s.runtime, tui.Options{Network: s.network.String()})
		s.runtime.Observe(app.Observer(s.ctrl))
	} else {
		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			select {
			case sig := <-sigChan:
				logging.Info("signal received, shutting down", logging.Component("cli"), "signal", sig.String())
				s.runtime.Send(node.CloseRequested{})
			case <-ctx.Done():
				return
			}
			select {
			case <-sigChan:
				logging.Warn("second signal, aborting", logging.Component("cli"))
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if s.cfg.AutoStart || !dashboard {
		s.runtime.Send(node.Start{})
	}

	finished := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- s.runtime.Run(ctx)
		close(finished)
	}()

	if app != nil {
		if err := app.Run(ctx, finished); err != nil {
			cancel()
			<-errc
			return err
		}
	}

	err := <-errc
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *session) close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.health != nil {
		s.health.Close()
	}
	if s.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.exporter.Close(ctx)
		cancel()
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}
