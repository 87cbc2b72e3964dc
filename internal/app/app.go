package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/xmedia/internal/common"
	"github.com/ternarybob/xmedia/internal/handlers"
	"github.com/ternarybob/xmedia/internal/interfaces"
	"github.com/ternarybob/xmedia/internal/services/browser"
	"github.com/ternarybob/xmedia/internal/services/dispatcher"
	"github.com/ternarybob/xmedia/internal/services/downloader"
	"github.com/ternarybob/xmedia/internal/services/resolver"
	"github.com/ternarybob/xmedia/internal/services/session"
	badgerstore "github.com/ternarybob/xmedia/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB         *badgerstore.BadgerDB
	Objects    interfaces.ObjectStore
	JobStorage interfaces.JobStorage

	// Session lifecycle
	SessionManager *session.Manager
	ProbeScheduler *session.ProbeScheduler

	// Extraction pipeline
	Resolver   interfaces.MediaResolver
	Downloader interfaces.MediaDownloader
	Dispatcher *dispatcher.Service

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	ExtractHandler *handlers.ExtractHandler
	SessionHandler *handlers.SessionHandler
	JobHandler     *handlers.JobHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initServices()
	app.initHandlers()

	app.Dispatcher.Start()
	if err := app.ProbeScheduler.Start(); err != nil {
		logger.Warn().Err(err).Msg("Session probe scheduler not started")
	}

	logger.Info().
		Str("data_path", cfg.Storage.Badger.Path).
		Str("session_key", cfg.Session.Key).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the storage layer (Badger)
func (a *App) initStorage() error {
	db, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.Objects = badgerstore.NewObjectStorage(db, a.Logger)
	a.JobStorage = badgerstore.NewJobStorage(db, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices wires the browser, session and extraction services in
// dependency order.
func (a *App) initServices() {
	creds := a.Config.Twitter.Credentials

	launcher := browser.NewLauncher(browser.Config{
		Headless:           true,
		UserAgent:          a.Config.Download.UserAgent,
		Proxy:              creds.Proxy,
		NetworkTimeout:     a.Config.Timeouts.Network.Std(),
		InteractionTimeout: a.Config.Timeouts.Interaction.Std(),
	}, a.Logger)
	screenshots := browser.NewScreenshots(a.Objects, a.Logger)
	prober := browser.NewProber(launcher, screenshots, a.Logger)

	machine := session.NewStateMachine(creds, a.Logger)
	login := session.NewBrowserLogin(launcher, screenshots, machine, a.Logger)
	validator := session.NewValidator(prober, a.Logger)
	store := session.NewStore(a.Objects, a.Config.Session.Key, a.Logger)
	a.SessionManager = session.NewManager(store, validator, login, a.Logger)
	a.ProbeScheduler = session.NewProbeScheduler(a.SessionManager, a.Config.Session.ProbeSchedule, a.Logger)

	a.Resolver = resolver.New(a.Config.Timeouts.Network.Std(), creds.Proxy, a.Config.Download.UserAgent, a.Logger)
	a.Downloader = downloader.New(a.Objects, a.Config.Timeouts.Network.Std(), a.Config.Download.Pace.Std(), creds.Proxy, a.Config.Download.UserAgent, a.Logger)
	a.Dispatcher = dispatcher.New(a.JobStorage, a.SessionManager, a.Resolver, a.Downloader, a.Logger)
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ExtractHandler = handlers.NewExtractHandler(a.Dispatcher, a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(a.SessionManager, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.JobStorage, a.Logger)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.ProbeScheduler != nil {
		a.ProbeScheduler.Stop()
	}

	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
		a.Logger.Info().Msg("Job dispatcher stopped")
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

// Health reports whether the storage layer is reachable.
func (a *App) Health(ctx context.Context) error {
	if a.DB == nil {
		return fmt.Errorf("storage not initialized")
	}
	_, err := a.JobStorage.ListJobs(ctx)
	return err
}
