package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"limitguard/internal/domain"
	"limitguard/internal/events"
	"limitguard/internal/limits"
	"limitguard/internal/lock"
	"limitguard/internal/port"
	"limitguard/internal/service"
	"limitguard/internal/validator"
	"limitguard/mocks"
)

func limitConfig() *domain.LimitConfig {
	return &domain.LimitConfig{
		Year:          2024,
		AnnualLimit:   dec("1000"),
		WarnRatio:     dec("0.8"),
		CriticalRatio: dec("1"),
	}
}

func dated(id, date, amount string) domain.Document {
	return domain.Document{ID: id, TenantID: "t1", Fields: invoiceFields(date, amount)}
}

type limitsMocks struct {
	docs    *mocks.MockDocumentRepo
	snaps   *mocks.MockSnapshotRepo
	configs *mocks.MockLimitConfigRepo
	locker  *mocks.MockLocker
	pub     *mocks.MockEventPublisher
}

func newLimitsWithMocks() (service.LimitsService, *limitsMocks) {
	m := &limitsMocks{
		docs:    new(mocks.MockDocumentRepo),
		snaps:   new(mocks.MockSnapshotRepo),
		configs: new(mocks.MockLimitConfigRepo),
		locker:  new(mocks.MockLocker),
		pub:     new(mocks.MockEventPublisher),
	}
	svc := service.NewLimitsService(m.docs, m.snaps, m.configs, m.locker, m.pub,
		service.LimitsOptions{LockTTL: time.Second}, quietLogger())
	return svc, m
}

func twelveSnapshots(n int) interface{} {
	return mock.MatchedBy(func(s []domain.MonthlySnapshot) bool { return len(s) == n })
}

func TestRecalcLimits_Success(t *testing.T) {
	svc, m := newLimitsWithMocks()
	lk := new(mocks.MockLock)

	m.configs.On("GetByYear", mock.Anything, 2024).Return(limitConfig(), nil)
	m.locker.On("Obtain", mock.Anything, "limits:t1:2024", time.Second).Return(lk, nil)
	lk.On("Release", mock.Anything).Return(nil)
	m.docs.On("Find", mock.Anything, domain.DocumentFilter{TenantID: "t1", Year: 2024}).
		Return([]domain.Document{dated("a", "2024-01-10", "100"), dated("b", "2024-02-10", "200")}, nil)
	m.snaps.On("ReplaceYear", mock.Anything, "t1", 2024, twelveSnapshots(12)).Return(nil)
	m.pub.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.LimitsRecalculated) bool {
		return e.State == domain.StateExceeded && e.Accumulated.Equal(dec("300")) && e.Forecast.Equal(dec("1800"))
	})).Return(nil)

	dash, err := svc.RecalcLimits(context.Background(), "t1", 2024, nil)

	require.NoError(t, err)
	assert.Len(t, dash.Snapshots, limits.MonthsPerYear)
	assert.True(t, dash.Forecast.Equal(dec("1800")))
	assert.Equal(t, 12, dash.Month)
	assert.Equal(t, domain.StateExceeded, dash.State)
	lk.AssertExpectations(t)
	m.snaps.AssertExpectations(t)
	m.pub.AssertExpectations(t)
}

func TestRecalcLimits_MissingConfig(t *testing.T) {
	svc, m := newLimitsWithMocks()
	m.configs.On("GetByYear", mock.Anything, 2030).Return(nil, domain.ErrLimitConfigNotFound)

	_, err := svc.RecalcLimits(context.Background(), "t1", 2030, nil)

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	m.docs.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
	m.snaps.AssertNotCalled(t, "ReplaceYear", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecalcLimits_InvalidConfig(t *testing.T) {
	svc, m := newLimitsWithMocks()
	bad := limitConfig()
	bad.WarnRatio = dec("1.5")
	m.configs.On("GetByYear", mock.Anything, 2024).Return(bad, nil)

	_, err := svc.RecalcLimits(context.Background(), "t1", 2024, nil)

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRecalcLimits_ProceedsWithoutLock(t *testing.T) {
	svc, m := newLimitsWithMocks()

	m.configs.On("GetByYear", mock.Anything, 2024).Return(limitConfig(), nil)
	m.locker.On("Obtain", mock.Anything, "limits:t1:2024", time.Second).Return(nil, domain.ErrLockNotObtained)
	m.docs.On("Find", mock.Anything, mock.Anything).Return([]domain.Document{}, nil)
	m.snaps.On("ReplaceYear", mock.Anything, "t1", 2024, twelveSnapshots(12)).Return(nil)
	m.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	dash, err := svc.RecalcLimits(context.Background(), "t1", 2024, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.StateOK, dash.State)
	assert.True(t, dash.Forecast.IsZero())
}

func TestRecalcLimits_ConflictKeepsNewerSnapshots(t *testing.T) {
	svc, m := newLimitsWithMocks()
	newer := time.Now().UTC().Add(time.Hour)
	stored := make([]domain.MonthlySnapshot, 0, 12)
	for month := 1; month <= 12; month++ {
		stored = append(stored, domain.MonthlySnapshot{
			TenantID: "t1", Year: 2024, Month: month, State: domain.StateNearLimit, ComputedAt: newer,
		})
	}

	m.configs.On("GetByYear", mock.Anything, 2024).Return(limitConfig(), nil)
	m.locker.On("Obtain", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrLockNotObtained)
	m.docs.On("Find", mock.Anything, mock.Anything).Return([]domain.Document{}, nil)
	m.snaps.On("ReplaceYear", mock.Anything, "t1", 2024, mock.Anything).Return(domain.ErrConflictIgnored)
	m.snaps.On("ListByYear", mock.Anything, "t1", 2024).Return(stored, nil)

	dash, err := svc.RecalcLimits(context.Background(), "t1", 2024, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.StateNearLimit, dash.State)
	assert.Equal(t, newer, dash.ComputedAt)
	m.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRecalcLimits_StoreFailure(t *testing.T) {
	svc, m := newLimitsWithMocks()

	m.configs.On("GetByYear", mock.Anything, 2024).Return(limitConfig(), nil)
	m.locker.On("Obtain", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrLockNotObtained)
	m.docs.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := svc.RecalcLimits(context.Background(), "t1", 2024, nil)

	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestRecalcLimits_ScopeOutsideYearKeepsStoredDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "200"))
	f.seed(t, "t1", "old", invoiceFields("2023-03-10", "5000"))
	first, err := f.limits.RecalcLimits(ctx, "t1", 2024, nil)
	require.NoError(t, err)
	before := len(f.publisher.named(domain.EventLimitsRecalculated))

	dash, err := f.limits.RecalcLimits(ctx, "t1", 2024, []string{"old"})

	require.NoError(t, err)
	assert.Equal(t, first.ComputedAt, dash.ComputedAt)
	assert.Len(t, f.publisher.named(domain.EventLimitsRecalculated), before)

	dash, err = f.limits.RecalcLimits(ctx, "t1", 2024, []string{"doc1"})
	require.NoError(t, err)
	assert.True(t, dash.Snapshots[11].Accumulated.Equal(dec("200")))
	assert.Len(t, f.publisher.named(domain.EventLimitsRecalculated), before+1)
}

func TestRecalcLimits_SnapshotsAreMonotonic(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "jan", invoiceFields("2024-01-10", "100"))
	f.seed(t, "t1", "feb", invoiceFields("2024-02-10", "200"))
	f.seed(t, "t1", "feb2", invoiceFields("2024-02-20", "50"))
	f.seed(t, "t1", "jul", invoiceFields("2024-07-01", "10"))

	dash, err := f.limits.RecalcLimits(context.Background(), "t1", 2024, nil)

	require.NoError(t, err)
	require.Len(t, dash.Snapshots, 12)
	for i := 1; i < len(dash.Snapshots); i++ {
		assert.True(t, dash.Snapshots[i].Accumulated.GreaterThanOrEqual(dash.Snapshots[i-1].Accumulated))
		assert.Equal(t, i+1, dash.Snapshots[i].Month)
	}
	assert.True(t, dash.Snapshots[11].Accumulated.Equal(dec("360")))
	// (100 + 250 + 10) / 3 * 12
	assert.True(t, dash.Forecast.Equal(dec("1440")))
}

// gatedDocumentRepo holds the first Find open after it has read, so a second
// recalculation can overtake it.
type gatedDocumentRepo struct {
	port.DocumentRepository
	gated   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (r *gatedDocumentRepo) Find(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	docs, err := r.DocumentRepository.Find(ctx, filter)
	if r.gated.CompareAndSwap(false, true) {
		close(r.read)
		<-r.release
	}
	return docs, err
}

func TestRecalcLimits_StaleReadDoesNotOverwriteNewerResult(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "100"))

	gated := &gatedDocumentRepo{
		DocumentRepository: f.store.Documents(),
		read:               make(chan struct{}),
		release:            make(chan struct{}),
	}
	lim := service.NewLimitsService(gated, f.store.Snapshots(), f.store.LimitConfigs(),
		nil, f.publisher, service.LimitsOptions{}, quietLogger())

	staleDone := make(chan error, 1)
	go func() {
		_, err := lim.RecalcLimits(context.Background(), "t1", 2024, nil)
		staleDone <- err
	}()
	<-gated.read

	_, err := f.docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: domain.FieldGrossAmount, Value: num("500")}},
		ActorID:    "user-1",
	})
	require.NoError(t, err)
	_, err = lim.RecalcLimits(context.Background(), "t1", 2024, nil)
	require.NoError(t, err)

	close(gated.release)
	require.NoError(t, <-staleDone)

	dash, err := lim.Dashboard(context.Background(), "t1", 2024)
	require.NoError(t, err)
	assert.Equal(t, "500", dash.Accumulated.String())
}

func TestOnFieldsUpdated_LoadsDocumentWhenDateMissing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "500"))

	err := f.limits.OnFieldsUpdated(context.Background(), domain.FieldsUpdated{DocumentID: "doc1", TenantID: "t1"})

	require.NoError(t, err)
	dash, err := f.limits.Dashboard(context.Background(), "t1", 2024)
	require.NoError(t, err)
	assert.True(t, dash.Accumulated.Equal(dec("500")))
}

func TestOnFieldsUpdated_IgnoresUndatedDocuments(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", domain.FieldMap{})

	err := f.limits.OnFieldsUpdated(context.Background(), domain.FieldsUpdated{DocumentID: "doc1", TenantID: "t1"})

	require.NoError(t, err)
	_, err = f.limits.Dashboard(context.Background(), "t1", 2024)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOnFieldsUpdated_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "200"))
	event := domain.FieldsUpdated{DocumentID: "doc1", TenantID: "t1", DocumentDate: "2024-03-10"}

	require.NoError(t, f.limits.OnFieldsUpdated(context.Background(), event))
	first, err := f.limits.Dashboard(context.Background(), "t1", 2024)
	require.NoError(t, err)
	require.NoError(t, f.limits.OnFieldsUpdated(context.Background(), event))
	second, err := f.limits.Dashboard(context.Background(), "t1", 2024)
	require.NoError(t, err)

	for i := range first.Snapshots {
		assert.True(t, first.Snapshots[i].Accumulated.Equal(second.Snapshots[i].Accumulated))
		assert.Equal(t, first.Snapshots[i].State, second.Snapshots[i].State)
	}
}

func TestOnFieldsUpdated_DateMovedAcrossYears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg2025 := limitConfig()
	cfg2025.Year = 2025
	require.NoError(t, f.store.LimitConfigs().Upsert(ctx, cfg2025))
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "100"))
	f.seed(t, "t1", "doc2", invoiceFields("2024-04-10", "50"))
	_, err := f.limits.RecalcLimits(ctx, "t1", 2024, nil)
	require.NoError(t, err)

	_, err = f.docs.ApplyPatch(ctx, service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: domain.FieldIssueDate, Value: str("2025-01-05")}},
	})
	require.NoError(t, err)
	published := f.publisher.named(domain.EventFieldsUpdated)
	event := published[len(published)-1].(domain.FieldsUpdated)
	assert.Equal(t, "2025-01-05", event.DocumentDate)
	assert.Equal(t, "2024-03-10", event.PreviousDate)

	require.NoError(t, f.limits.OnFieldsUpdated(ctx, event))

	left, err := f.limits.Dashboard(ctx, "t1", 2024)
	require.NoError(t, err)
	assert.Equal(t, "50", left.Accumulated.String())
	entered, err := f.limits.Dashboard(ctx, "t1", 2025)
	require.NoError(t, err)
	assert.Equal(t, "100", entered.Accumulated.String())
}

func TestOnFieldsUpdated_DateRemovedRecalculatesYearLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "100"))
	f.seed(t, "t1", "doc2", invoiceFields("2024-04-10", "50"))
	_, err := f.limits.RecalcLimits(ctx, "t1", 2024, nil)
	require.NoError(t, err)

	doc, err := f.store.Documents().GetByID(ctx, "t1", "doc1")
	require.NoError(t, err)
	delete(doc.Fields, domain.FieldIssueDate)
	require.NoError(t, f.store.Documents().Put(ctx, doc))

	err = f.limits.OnFieldsUpdated(ctx, domain.FieldsUpdated{
		DocumentID:   "doc1",
		TenantID:     "t1",
		PreviousDate: "2024-03-10",
	})

	require.NoError(t, err)
	dash, err := f.limits.Dashboard(ctx, "t1", 2024)
	require.NoError(t, err)
	assert.Equal(t, "50", dash.Accumulated.String())
}

func TestDashboard_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.limits.Dashboard(context.Background(), "t1", 2024)

	assert.ErrorIs(t, err, domain.ErrSnapshotsNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecalcYear_ReportsPerTenant(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "a", invoiceFields("2024-03-10", "200"))
	f.seed(t, "t2", "b", invoiceFields("2024-05-10", "10"))

	report, err := f.limits.RecalcYear(context.Background(), 2024)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Tenants)
	assert.Equal(t, 2, report.Succeeded)
	assert.Empty(t, report.Failed)

	report, err = f.limits.RecalcYear(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Tenants)
}

func TestSeedConfigs_KeepsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.limits.SeedConfigs(ctx, []domain.LimitConfig{
		{Year: 2024, AnnualLimit: dec("5"), WarnRatio: dec("0.5"), CriticalRatio: dec("1")},
		{Year: 2025, AnnualLimit: dec("81000"), WarnRatio: dec("0.8"), CriticalRatio: dec("1")},
	})

	require.NoError(t, err)
	cfg2024, err := f.store.LimitConfigs().GetByYear(ctx, 2024)
	require.NoError(t, err)
	assert.True(t, cfg2024.AnnualLimit.Equal(dec("1000")))
	cfg2025, err := f.store.LimitConfigs().GetByYear(ctx, 2025)
	require.NoError(t, err)
	assert.True(t, cfg2025.AnnualLimit.Equal(dec("81000")))
	assert.False(t, cfg2025.UpdatedAt.IsZero())
}

// The full chain: seed, patch, FieldsUpdated over the local bus, recalculation
// by the registered handler, dashboard read.
func TestPipeline_PatchToDashboard(t *testing.T) {
	store := newFixture(t).store
	log := quietLogger()
	dispatcher := events.NewDispatcher()
	bus := events.NewLocalBus(dispatcher, events.LocalBusConfig{RetryBackoff: time.Millisecond}, log)

	docs := service.NewDocumentService(store.Documents(), store.Audit(), store.UnitOfWork(),
		validator.New(), bus, log)
	lim := service.NewLimitsService(store.Documents(), store.Snapshots(), store.LimitConfigs(),
		lock.NewLocalLocker(time.Second), bus, service.LimitsOptions{Timeout: 4 * time.Second}, log)
	notified := make(chan domain.LimitAlert, 4)
	notifier := new(mocks.MockNotifier)
	notifier.On("NotifyLimitState", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { notified <- args.Get(1).(domain.LimitAlert) }).
		Return(nil)
	service.RegisterEventHandlers(dispatcher, lim, service.NewAlertService(notifier, log))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bus.Start(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	_, err := docs.Create(context.Background(), service.CreateDocumentInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Fields:     invoiceFields("2024-03-10", "123.50"),
	})
	require.NoError(t, err)
	_, err = docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: domain.FieldGrossAmount, Value: num("200"), Source: domain.SourceUser}},
		ActorID:    "user-1",
	})
	require.NoError(t, err)

	var dash *domain.Dashboard
	require.Eventually(t, func() bool {
		d, err := lim.Dashboard(context.Background(), "t1", 2024)
		if err != nil || !d.Accumulated.Equal(dec("200")) {
			return false
		}
		dash = d
		return true
	}, 5*time.Second, 10*time.Millisecond)

	assert.Len(t, dash.Snapshots, 12)
	assert.True(t, dash.Forecast.Equal(dec("2400")))
	assert.Equal(t, domain.StateExceeded, dash.State)
	assert.True(t, dash.Snapshots[1].Accumulated.IsZero())
	assert.True(t, dash.Snapshots[2].Accumulated.Equal(dec("200")))

	select {
	case alert := <-notified:
		assert.Equal(t, "t1", alert.TenantID)
		assert.Equal(t, domain.StateExceeded, alert.State)
	case <-time.After(5 * time.Second):
		t.Fatal("no limit alert sent")
	}
}
