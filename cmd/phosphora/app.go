package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IsraelGboluwaga/phosphora/internal/api"
	"github.com/IsraelGboluwaga/phosphora/internal/coordinator"
	"github.com/IsraelGboluwaga/phosphora/internal/detector"
	"github.com/IsraelGboluwaga/phosphora/internal/library"
	"github.com/IsraelGboluwaga/phosphora/internal/logger"
	"github.com/IsraelGboluwaga/phosphora/internal/settings"
)

// app holds the collaborators shared by the commands.
type app struct {
	settings settings.Settings
	logger   *slog.Logger
	client   *api.Client
	library  *library.Library
	closers  []io.Closer
}

// settings loads the settings file and applies the flag overrides.
func (g *Globals) settings() (settings.Settings, error) {
	var s settings.Settings
	var err error
	if g.ConfigPath != "" {
		s, err = settings.LoadFrom(g.ConfigPath)
	} else {
		s, err = settings.Load()
	}
	if err != nil {
		return s, fmt.Errorf("load settings: %w", err)
	}

	if g.Translation != "" {
		s.Translation = g.Translation
	}
	if g.Theme != "" {
		s.Theme = g.Theme
	}
	if g.LogLevel != "" {
		s.LogLevel = g.LogLevel
	}
	if g.LogFormat != "" {
		s.LogFormat = g.LogFormat
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// open builds the shared collaborators. When logToFile is set the log goes
// to phosphora.log in the config dir so it does not corrupt the terminal UI.
func (g *Globals) open(logToFile bool) (*app, error) {
	s, err := g.settings()
	if err != nil {
		return nil, err
	}

	a := &app{settings: s}
	logCfg := logger.Config{Format: s.LogFormat, Level: logger.ParseLevel(s.LogLevel)}
	if logToFile {
		dir, err := settings.Dir()
		if err != nil {
			return nil, err
		}
		l, closer, err := logger.OpenFile(filepath.Join(dir, "phosphora.log"), logCfg)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logger = l
		a.closers = append(a.closers, closer)
	} else {
		logCfg.Writer = os.Stderr
		a.logger = logger.New(logCfg)
	}

	dbPath := g.LibraryPath
	if dbPath == "" {
		if dbPath, err = library.DefaultPath(); err != nil {
			return nil, err
		}
	}
	lib, err := library.Open(dbPath, library.WithLogger(a.logger.With("component", "library")))
	if err != nil {
		// The network path still works without the offline library.
		a.logger.Warn("offline library unavailable", "path", dbPath, "error", err)
	} else {
		a.library = lib
		a.closers = append(a.closers, lib)
	}

	opts := []api.ClientOption{
		api.WithRateLimit(s.RequestsPerSecond, int(s.RequestsPerSecond)),
		api.WithLogger(a.logger.With("component", "api")),
	}
	if a.library != nil {
		opts = append(opts, api.WithOffline(a.library))
	}
	a.client = api.NewClient(opts...)
	return a, nil
}

func (a *app) detector() *detector.Detector {
	return detector.New(detector.WithPolicy(a.settings.Policy()))
}

func (a *app) coordinator() *coordinator.Coordinator {
	log := a.logger.With("component", "coordinator")
	return coordinator.New(a.client,
		coordinator.WithTranslation(a.settings.Translation),
		coordinator.WithPrefetchWorkers(a.settings.PrefetchWorkers),
		coordinator.WithLogger(log),
		coordinator.WithSurfaces(coordinator.SurfaceFunc(func(tab coordinator.TabID, enabled bool) {
			log.Debug("surface toggled", "tab", tab, "enabled", enabled)
		})),
	)
}

func (a *app) requireLibrary() (*library.Library, error) {
	if a.library == nil {
		return nil, errors.New("offline library is not available")
	}
	return a.library, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}
