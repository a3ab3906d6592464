// Package app assembles the repositories, event channel, services and HTTP
// handlers from configuration. Both the server and the recalc command build
// on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"limitguard/internal/alert"
	"limitguard/internal/alert/ses"
	"limitguard/internal/alert/slack"
	"limitguard/internal/config"
	"limitguard/internal/domain"
	"limitguard/internal/events"
	"limitguard/internal/events/gcpbus"
	"limitguard/internal/events/redisbus"
	"limitguard/internal/handler"
	"limitguard/internal/lock"
	"limitguard/internal/port"
	"limitguard/internal/repository/memory"
	"limitguard/internal/repository/postgres"
	"limitguard/internal/router"
	"limitguard/internal/service"
	s3storage "limitguard/internal/storage/s3"
	"limitguard/internal/validator"
)

// App holds the wired services and the background event consumer.
type App struct {
	Config *config.Config
	Log    logrus.FieldLogger

	Documents service.DocumentService
	Limits    service.LimitsService
	Exports   service.ExportService
	Storage   service.StorageService
	Alerts    service.AlertService

	db         *sqlx.DB
	redis      *redis.Client
	dispatcher *events.Dispatcher
	consume    func(ctx context.Context) error
	closers    []func() error
}

type repositories struct {
	docs    port.DocumentRepository
	audit   port.DocumentAuditRepository
	snaps   port.SnapshotRepository
	configs port.LimitConfigRepository
	uow     port.UnitOfWork
}

// New builds an App. Call Close when done, even if Run was never started.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (_ *App, err error) {
	a := &App{Config: cfg, Log: log, dispatcher: events.NewDispatcher()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	repos, err := a.openRepositories()
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, a.redis.Close)
	}

	publisher, err := a.openEventChannel(ctx)
	if err != nil {
		return nil, err
	}

	var locker port.Locker
	if a.redis != nil {
		locker = lock.NewRedisLocker(a.redis, cfg.Lock.Backoff, cfg.Lock.Wait)
	} else {
		locker = lock.NewLocalLocker(cfg.Lock.Wait)
	}

	var objects port.ObjectStorage
	if cfg.S3.Bucket != "" {
		objects, err = s3storage.NewObjectStore(ctx, &cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("initializing object storage: %w", err)
		}
	}

	notifier, err := a.notifiers(ctx)
	if err != nil {
		return nil, err
	}

	a.Documents = service.NewDocumentService(repos.docs, repos.audit, repos.uow, validator.New(), publisher, log)
	a.Limits = service.NewLimitsService(repos.docs, repos.snaps, repos.configs, locker, publisher, service.LimitsOptions{
		LockTTL: cfg.Lock.TTL,
		Timeout: cfg.Limits.RecalcTimeout,
	}, log)
	a.Exports = service.NewExportService(a.Limits, objects, &cfg.S3)
	a.Storage = service.NewStorageService(objects, &cfg.S3)
	a.Alerts = service.NewAlertService(notifier, log)
	service.RegisterEventHandlers(a.dispatcher, a.Limits, a.Alerts)

	if err := a.Limits.SeedConfigs(ctx, seedConfigs(cfg.Limits)); err != nil {
		return nil, fmt.Errorf("seeding limit configs: %w", err)
	}
	return a, nil
}

func (a *App) openRepositories() (*repositories, error) {
	switch a.Config.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		a.Log.Warn("using in-memory storage; data is lost on restart")
		return &repositories{
			docs:    store.Documents(),
			audit:   store.Audit(),
			snaps:   store.Snapshots(),
			configs: store.LimitConfigs(),
			uow:     store.UnitOfWork(),
		}, nil
	case "postgres", "":
		db, err := postgres.NewDB(&a.Config.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
		return &repositories{
			docs:    postgres.NewDocumentRepo(db),
			audit:   postgres.NewDocumentAuditRepo(db),
			snaps:   postgres.NewSnapshotRepo(db),
			configs: postgres.NewLimitConfigRepo(db),
			uow:     postgres.NewUnitOfWork(db),
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", a.Config.Storage.Driver)
	}
}

func (a *App) openEventChannel(ctx context.Context) (port.EventPublisher, error) {
	cfg := a.Config.Events
	switch cfg.Driver {
	case "local", "":
		bus := events.NewLocalBus(a.dispatcher, events.LocalBusConfig{
			QueueSize:      cfg.QueueSize,
			Concurrency:    cfg.Concurrency,
			MaxAttempts:    cfg.MaxAttempts,
			RetryBackoff:   cfg.RetryBackoff,
			HandlerTimeout: cfg.HandlerTimeout,
		}, a.Log)
		a.consume = func(ctx context.Context) error {
			bus.Start(ctx)
			return nil
		}
		return bus, nil
	case "redis":
		if a.redis == nil {
			return nil, errors.New("events driver redis requires redis.addr")
		}
		bus := redisbus.New(a.redis, cfg.Channel, a.Log)
		a.consume = func(ctx context.Context) error { return bus.Run(ctx, a.dispatcher) }
		return bus, nil
	case "gcp":
		bus, err := gcpbus.New(ctx, gcpbus.Config{
			ProjectID:       cfg.GCPProject,
			Topic:           cfg.GCPTopic,
			Subscription:    cfg.GCPSubscription,
			CredentialsJSON: cfg.GCPCredentials,
			MaxOutstanding:  cfg.Concurrency,
		}, a.Log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, bus.Close)
		a.consume = func(ctx context.Context) error { return bus.Run(ctx, a.dispatcher) }
		return bus, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

func (a *App) notifiers(ctx context.Context) (port.Notifier, error) {
	notifiers := alert.MultiNotifier{alert.NewLogNotifier(a.Log)}

	if a.Config.Email.Provider == "ses" && len(a.Config.Alerts.EmailRecipients) > 0 {
		n, err := ses.NewNotifier(ctx, a.Config.Email.Region, a.Config.Email.FromAddress,
			a.Config.Email.FromName, a.Config.Alerts.EmailRecipients)
		if err != nil {
			return nil, fmt.Errorf("initializing SES notifier: %w", err)
		}
		notifiers = append(notifiers, n)
	}
	if a.Config.Alerts.SlackWebhookURL != "" {
		notifiers = append(notifiers, slack.NewNotifier(a.Config.Alerts.SlackWebhookURL))
	}
	return notifiers, nil
}

func seedConfigs(cfg config.LimitsConfig) []domain.LimitConfig {
	out := make([]domain.LimitConfig, 0, len(cfg.DefaultYears))
	for _, year := range cfg.DefaultYears {
		out = append(out, domain.LimitConfig{
			Year:          year,
			AnnualLimit:   cfg.AnnualLimit,
			WarnRatio:     cfg.WarnRatio,
			CriticalRatio: cfg.CriticalRatio,
		})
	}
	return out
}

// Router builds the HTTP engine over the wired services.
func (a *App) Router() *gin.Engine {
	var pinger handler.Pinger
	if a.db != nil {
		pinger = a.db
	}
	return router.Setup(a.Log, a.Config,
		handler.NewDocumentHandler(a.Documents),
		handler.NewLimitsHandler(a.Limits, a.Exports),
		handler.NewStorageHandler(a.Storage),
		handler.NewHealthHandler(pinger),
	)
}

// Run consumes events until ctx is canceled. It blocks.
func (a *App) Run(ctx context.Context) error {
	if a.consume == nil {
		<-ctx.Done()
		return nil
	}
	return a.consume(ctx)
}

// Start runs the event consumer in the background and returns a function
// that waits for it to finish.
func (a *App) Start(ctx context.Context) (wait func() error) {
	var (
		wg     sync.WaitGroup
		runErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Run(ctx); err != nil {
			a.Log.WithError(err).Error("event consumer stopped")
			runErr = err
		}
	}()
	return func() error {
		wg.Wait()
		return runErr
	}
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
