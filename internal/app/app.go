package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/generator"
	"github.com/ternarybob/scribo/internal/handlers"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/jobs"
	"github.com/ternarybob/scribo/internal/storage/badger"
)

// App holds all application components and dependencies. Each New builds
// fresh components, including a job manager with an empty job table. Image
// bytes stored in Badger persist across New/Close pairs at the same path
// unless storage.badger.reset_on_startup is set.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	BadgerDB     *badger.BadgerDB
	ImageStorage interfaces.ImageStorage

	// Generation
	Generator interfaces.TextGenerator

	// Job lifecycle engine
	JobManager *jobs.Manager

	// HTTP handlers
	APIHandler   *handlers.APIHandler
	JobHandler   *handlers.JobHandler
	ImageHandler *handlers.ImageHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Storage layer
	db, err := badger.NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.BadgerDB = db
	app.ImageStorage = badger.NewImageStorage(db, logger)
	logger.Info().
		Str("path", cfg.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Glyph generator
	glyph, err := generator.NewGlyph(&cfg.Generator, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	app.Generator = glyph
	logger.Info().
		Int("image_size", cfg.Generator.ImageSize).
		Str("char_interval", cfg.Generator.CharInterval).
		Msg("Glyph generator initialized")

	// Job lifecycle engine
	app.JobManager = jobs.NewManager(
		cfg.Service.QueueInterval(),
		cfg.Service.RetainTime(),
		app.Generator,
		app.ImageStorage,
		logger,
	)
	app.JobManager.Start()

	// HTTP handlers
	app.APIHandler = handlers.NewAPIHandler(logger)
	app.JobHandler = handlers.NewJobHandler(app.JobManager, logger)
	app.ImageHandler = handlers.NewImageHandler(app.ImageStorage, logger)

	logger.Info().Msg("Application initialization complete")

	return app, nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.JobManager != nil {
		a.JobManager.Stop()
	}

	a.Logger.Info().Msg("Flushing context logs")
	common.Stop()

	if a.BadgerDB != nil {
		if err := a.BadgerDB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}
	return nil
}
