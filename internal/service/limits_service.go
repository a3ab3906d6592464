package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"limitguard/internal/domain"
	"limitguard/internal/limits"
	"limitguard/internal/port"
)

// LimitsOptions tunes recalculation.
type LimitsOptions struct {
	// LockTTL bounds how long a tenant/year lock may be held.
	LockTTL time.Duration
	// Timeout caps one recalculation; zero means no cap beyond the caller's context.
	Timeout time.Duration
}

// RecalcReport summarizes a multi-tenant recalculation run.
type RecalcReport struct {
	Year      int
	Tenants   int
	Succeeded int
	Failed    map[string]error
}

// LimitsService defines the limits and forecasting contract.
type LimitsService interface {
	// RecalcLimits recomputes all 12 monthly snapshots of a tenant/year.
	RecalcLimits(ctx context.Context, tenantID string, year int, docIDs []string) (*domain.Dashboard, error)
	OnFieldsUpdated(ctx context.Context, event domain.FieldsUpdated) error
	Dashboard(ctx context.Context, tenantID string, year int) (*domain.Dashboard, error)
	RecalcYear(ctx context.Context, year int) (*RecalcReport, error)
	SeedConfigs(ctx context.Context, configs []domain.LimitConfig) error
}

type limitsService struct {
	docRepo    port.DocumentRepository
	snapRepo   port.SnapshotRepository
	configRepo port.LimitConfigRepository
	locker     port.Locker
	publisher  port.EventPublisher
	opts       LimitsOptions
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewLimitsService creates a new LimitsService implementation.
func NewLimitsService(
	docRepo port.DocumentRepository,
	snapRepo port.SnapshotRepository,
	configRepo port.LimitConfigRepository,
	locker port.Locker,
	publisher port.EventPublisher,
	opts LimitsOptions,
	log logrus.FieldLogger,
) LimitsService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	return &limitsService{
		docRepo:    docRepo,
		snapRepo:   snapRepo,
		configRepo: configRepo,
		locker:     locker,
		publisher:  publisher,
		opts:       opts,
		log:        log.WithField("component", "limits_service"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func lockKey(tenantID string, year int) string {
	return fmt.Sprintf("limits:%s:%d", tenantID, year)
}

func (s *limitsService) RecalcLimits(ctx context.Context, tenantID string, year int, docIDs []string) (*domain.Dashboard, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	ctx, span := tracer.Start(ctx, "LimitsService.RecalcLimits", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.Int("year", year),
		attribute.Int("scoped_ids", len(docIDs)),
	))
	defer span.End()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	log := s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "year": year})

	dash, err := s.recalc(ctx, log, tenantID, year, docIDs)
	if err != nil {
		recordSpanError(span, err)
		log.WithError(err).Error("recalculation failed")
		return nil, err
	}
	return dash, nil
}

func (s *limitsService) recalc(ctx context.Context, log logrus.FieldLogger, tenantID string, year int, docIDs []string) (*domain.Dashboard, error) {
	cfg, err := s.config(ctx, year)
	if err != nil {
		return nil, err
	}

	if len(docIDs) > 0 {
		dash, unaffected, err := s.scopeUnaffected(ctx, tenantID, year, docIDs)
		if err != nil {
			return nil, err
		}
		if unaffected {
			log.WithField("doc_ids", docIDs).Debug("scoped documents outside year, keeping stored snapshots")
			return dash, nil
		}
	}

	lock := s.obtainLock(ctx, log, lockKey(tenantID, year))
	if lock != nil {
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				log.WithError(err).Warn("failed to release limits lock")
			}
		}()
	}

	// Stamped before the read so a computation over older data never carries
	// a later computed_at than one that read after it.
	computedAt := s.now()
	docs, err := s.docRepo.Find(ctx, domain.DocumentFilter{TenantID: tenantID, Year: year})
	if err != nil {
		return nil, fmt.Errorf("%w: load documents: %w", domain.ErrPersistence, err)
	}
	summary := limits.Summarize(docs, year)
	if summary.Skipped > 0 {
		log.WithField("skipped", summary.Skipped).Warn("documents without a usable date were skipped")
	}

	snapshots := limits.BuildSnapshots(tenantID, year, summary, cfg, computedAt)

	err = s.snapRepo.ReplaceYear(ctx, tenantID, year, snapshots)
	switch {
	case errors.Is(err, domain.ErrConflictIgnored):
		log.Info("a newer computation is already stored, keeping it")
		stored, err := s.snapRepo.ListByYear(ctx, tenantID, year)
		if err != nil {
			return nil, fmt.Errorf("%w: list snapshots: %w", domain.ErrPersistence, err)
		}
		return limits.BuildDashboard(tenantID, year, stored, s.now())
	case err != nil:
		return nil, fmt.Errorf("%w: replace snapshots: %w", domain.ErrPersistence, err)
	}

	event := domain.LimitsRecalculated{
		TenantID:    tenantID,
		Year:        year,
		State:       limits.TerminalState(snapshots),
		Accumulated: summary.Total(),
		Forecast:    summary.Forecast,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("failed to publish LimitsRecalculated")
	}

	log.WithFields(logrus.Fields{
		"documents": len(docs),
		"state":     event.State,
		"forecast":  summary.Forecast.String(),
	}).Info("limits recalculated")

	return limits.BuildDashboard(tenantID, year, snapshots, computedAt)
}

// config loads and validates the year's thresholds. Any failure to produce a
// usable configuration is a configuration error.
func (s *limitsService) config(ctx context.Context, year int) (*domain.LimitConfig, error) {
	cfg, err := s.configRepo.GetByYear(ctx, year)
	switch {
	case errors.Is(err, domain.ErrLimitConfigNotFound):
		return nil, fmt.Errorf("%w: no limits configured for year %d", domain.ErrConfiguration, year)
	case err != nil:
		return nil, fmt.Errorf("%w: load limits for year %d: %w", domain.ErrConfiguration, year, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// scopeUnaffected reports whether none of the scoped documents are dated in
// year while snapshots already exist, in which case the stored dashboard is
// still current. Scoping never narrows what a recalculation reads.
func (s *limitsService) scopeUnaffected(ctx context.Context, tenantID string, year int, docIDs []string) (*domain.Dashboard, bool, error) {
	scoped, err := s.docRepo.Find(ctx, domain.DocumentFilter{TenantID: tenantID, Year: year, DocumentIDs: docIDs})
	if err != nil {
		return nil, false, fmt.Errorf("%w: load scoped documents: %w", domain.ErrPersistence, err)
	}
	if len(scoped) > 0 {
		return nil, false, nil
	}
	stored, err := s.snapRepo.ListByYear(ctx, tenantID, year)
	if err != nil {
		return nil, false, fmt.Errorf("%w: list snapshots: %w", domain.ErrPersistence, err)
	}
	if len(stored) != limits.MonthsPerYear {
		return nil, false, nil
	}
	dash, err := limits.BuildDashboard(tenantID, year, stored, s.now())
	if err != nil {
		return nil, false, err
	}
	return dash, true, nil
}

// obtainLock takes the tenant/year lock on a best-effort basis: when it cannot
// be obtained the recalculation proceeds and the computed_at guard on the
// snapshot write keeps the newest result.
func (s *limitsService) obtainLock(ctx context.Context, log logrus.FieldLogger, key string) port.Lock {
	if s.locker == nil {
		return nil
	}
	lock, err := s.locker.Obtain(ctx, key, s.opts.LockTTL)
	if err != nil {
		log.WithError(err).WithField("lock", key).Warn("proceeding without limits lock")
		return nil
	}
	return lock
}

// OnFieldsUpdated recalculates the year the changed document belongs to and,
// when the patch moved its issue date, the year it left. Replaying the same
// event converges on the same snapshots.
func (s *limitsService) OnFieldsUpdated(ctx context.Context, event domain.FieldsUpdated) error {
	log := s.log.WithFields(logrus.Fields{"tenant_id": event.TenantID, "document_id": event.DocumentID})

	date := event.DocumentDate
	if date == "" {
		doc, err := s.docRepo.GetByID(ctx, event.TenantID, event.DocumentID)
		if err != nil {
			return fmt.Errorf("limits.OnFieldsUpdated: %w", err)
		}
		date, _ = doc.IssueDate()
	}

	var (
		errs        []error
		currentYear int
		hasCurrent  bool
	)
	if date == "" {
		log.Debug("document has no issue date, nothing to recalculate")
	} else if year, err := domain.YearFromISODate(date); err != nil {
		log.WithError(err).Warn("document date is not usable, nothing to recalculate")
	} else {
		currentYear, hasCurrent = year, true
		if _, err := s.RecalcLimits(ctx, event.TenantID, year, []string{event.DocumentID}); err != nil {
			errs = append(errs, err)
		}
	}

	if event.PreviousDate != "" {
		prevYear, err := domain.YearFromISODate(event.PreviousDate)
		switch {
		case err != nil:
			log.WithError(err).Debug("previous date is not usable, skipping the year it left")
		case hasCurrent && prevYear == currentYear:
		default:
			// The document is gone from prevYear, so scoping by its id would
			// find nothing there and keep the stale snapshots.
			log.WithField("previous_year", prevYear).Info("issue date moved, recalculating the year it left")
			if _, err := s.RecalcLimits(ctx, event.TenantID, prevYear, nil); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *limitsService) Dashboard(ctx context.Context, tenantID string, year int) (*domain.Dashboard, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	snapshots, err := s.snapRepo.ListByYear(ctx, tenantID, year)
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshots: %w", domain.ErrPersistence, err)
	}
	return limits.BuildDashboard(tenantID, year, snapshots, s.now())
}

// RecalcYear recalculates every tenant having documents dated in year. One
// tenant failing does not stop the others.
func (s *limitsService) RecalcYear(ctx context.Context, year int) (*RecalcReport, error) {
	tenants, err := s.docRepo.ListTenantsWithDocuments(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("%w: list tenants: %w", domain.ErrPersistence, err)
	}
	report := &RecalcReport{Year: year, Tenants: len(tenants), Failed: make(map[string]error)}
	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := s.RecalcLimits(ctx, tenantID, year, nil); err != nil {
			report.Failed[tenantID] = err
			continue
		}
		report.Succeeded++
	}
	return report, nil
}

// SeedConfigs stores configs for years that have none yet. Existing
// configurations are left untouched.
func (s *limitsService) SeedConfigs(ctx context.Context, configs []domain.LimitConfig) error {
	for i := range configs {
		cfg := configs[i]
		_, err := s.configRepo.GetByYear(ctx, cfg.Year)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrLimitConfigNotFound) {
			return fmt.Errorf("limits.SeedConfigs: %w", err)
		}
		if cfg.UpdatedAt.IsZero() {
			cfg.UpdatedAt = s.now()
		}
		if err := s.configRepo.Upsert(ctx, &cfg); err != nil {
			return fmt.Errorf("limits.SeedConfigs: year %d: %w", cfg.Year, err)
		}
		s.log.WithField("year", cfg.Year).Info("seeded limit configuration")
	}
	return nil
}
