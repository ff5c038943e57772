package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/handlers"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/services/ai"
	"github.com/ternarybob/scribe/internal/services/content"
	"github.com/ternarybob/scribe/internal/services/ledger"
	"github.com/ternarybob/scribe/internal/services/media"
	"github.com/ternarybob/scribe/internal/services/pipeline"
	"github.com/ternarybob/scribe/internal/services/queue"
	"github.com/ternarybob/scribe/internal/services/scheduler"
	"github.com/ternarybob/scribe/internal/services/seo"
	"github.com/ternarybob/scribe/internal/services/settings"
	"github.com/ternarybob/scribe/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Generation services
	AIClient        interfaces.AIClient
	SettingsService interfaces.SettingsService
	LedgerService   interfaces.LedgerService
	ContentService  interfaces.ContentStore
	MediaService    interfaces.MediaStore
	QueueService    *queue.Service
	PipelineService interfaces.PipelineService

	// Scheduler
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	JobHandler       *handlers.JobHandler
	QueueHandler     *handlers.QueueHandler
	SchedulerHandler *handlers.SchedulerHandler
	SettingsHandler  *handlers.SettingsHandler
	LedgerHandler    *handlers.LedgerHandler
	DocumentHandler  *handlers.DocumentHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Str("model", app.SettingsService.Model()).
		Bool("schedule_enabled", app.SettingsService.ScheduleEnabled()).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices wires the generation stack. Order matters: settings and
// ledger feed the pipeline, the pipeline feeds the scheduler.
func (a *App) initServices() error {
	registry, err := ai.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to load model registry: %w", err)
	}

	a.AIClient = ai.NewClient(a.Logger, &a.Config.AI, registry)
	a.SettingsService = settings.NewService(a.StorageManager.KVStore(), a.Config, a.Logger)
	a.LedgerService = ledger.NewService(a.StorageManager.LedgerStore(), a.Logger)
	a.ContentService = content.NewService(a.StorageManager.DocumentStore(), a.Logger)
	a.MediaService = media.NewService(a.StorageManager.DocumentStore(), a.Config.Storage.Filesystem.Images, a.Logger)
	a.QueueService = queue.NewService(a.StorageManager.QueueStore(), a.Logger)

	a.PipelineService = pipeline.NewEngine(pipeline.Dependencies{
		Jobs:      a.StorageManager.JobStore(),
		Client:    a.AIClient,
		Content:   a.ContentService,
		SEOWriter: seo.NewDocumentWriter(a.StorageManager.DocumentStore(), a.Logger),
		Media:     a.MediaService,
		Queue:     a.StorageManager.QueueStore(),
		Ledger:    a.LedgerService,
		Settings:  a.SettingsService,
	}, a.Config, a.Logger)

	a.SchedulerService = scheduler.NewService(
		a.PipelineService,
		a.StorageManager.QueueStore(),
		a.StorageManager.LockStore(),
		a.SettingsService,
		a.LedgerService,
		a.AIClient,
		a.Config,
		a.Logger,
	)

	a.Logger.Debug().Msg("Services initialized")
	return nil
}

// initHandlers creates the HTTP handlers over the wired services.
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.JobHandler = handlers.NewJobHandler(a.PipelineService, a.Logger)
	a.QueueHandler = handlers.NewQueueHandler(a.QueueService, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.Logger)
	a.SettingsHandler = handlers.NewSettingsHandler(a.SettingsService, a.Logger)
	a.LedgerHandler = handlers.NewLedgerHandler(a.StorageManager.LedgerStore(), a.LedgerService, a.Logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.StorageManager.DocumentStore(), a.Logger)
}

// StartScheduler starts the cron-driven scheduler loop.
func (a *App) StartScheduler() error {
	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage manager")
			return err
		}
		a.Logger.Info().Msg("Storage manager closed")
	}

	return nil
}
