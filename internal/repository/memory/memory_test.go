package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limitguard/internal/domain"
	"limitguard/internal/port"
	"limitguard/internal/repository/memory"
)

func dated(tenantID, id, date string) *domain.Document {
	fields := domain.FieldMap{}
	_, _, _ = fields.Set(domain.MustParsePath(domain.FieldIssueDate), domain.StringValue(date))
	return &domain.Document{ID: id, TenantID: tenantID, Fields: fields}
}

func TestDocumentRepo_TenantIsolationAndFind(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	repo := s.Documents()

	require.NoError(t, repo.Put(ctx, dated("t1", "a", "2024-01-10")))
	require.NoError(t, repo.Put(ctx, dated("t1", "b", "2024-06-01")))
	require.NoError(t, repo.Put(ctx, dated("t1", "c", "2023-12-31")))
	require.NoError(t, repo.Put(ctx, dated("t2", "d", "2024-02-02")))

	_, err := repo.GetByID(ctx, "t2", "a")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, err := repo.Find(ctx, domain.DocumentFilter{TenantID: "t1", Year: 2024})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)

	docs, err = repo.Find(ctx, domain.DocumentFilter{TenantID: "t1", Year: 2024, DocumentIDs: []string{"b", "d"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)

	tenants, err := repo.ListTenantsWithDocuments(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, tenants)
}

func TestDocumentRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Documents()
	require.NoError(t, repo.Put(ctx, dated("t1", "a", "2024-01-10")))

	got, err := repo.GetByID(ctx, "t1", "a")
	require.NoError(t, err)
	_, _, _ = got.Fields.Set(domain.MustParsePath("x"), domain.StringValue("mutated"))

	again, err := repo.GetByID(ctx, "t1", "a")
	require.NoError(t, err)
	_, ok := again.Fields.Get(domain.MustParsePath("x"))
	assert.False(t, ok)
}

func TestUnitOfWork_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	uow := s.UnitOfWork()

	err := uow.Do(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		require.NoError(t, repos.Documents.Put(ctx, dated("t1", "a", "2024-01-10")))
		return repos.Audit.Append(ctx, &domain.AuditRecord{ID: uuid.New(), TenantID: "t1", DocumentID: "a"})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Audit().Len())

	boom := errors.New("boom")
	err = uow.Do(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		require.NoError(t, repos.Documents.Put(ctx, dated("t1", "b", "2024-01-10")))
		require.NoError(t, repos.Audit.Append(ctx, &domain.AuditRecord{ID: uuid.New(), TenantID: "t1", DocumentID: "b"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Documents().GetByID(ctx, "t1", "b")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	assert.Equal(t, 1, s.Audit().Len())
}

func TestUnitOfWork_AuditFailure(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	s.FailAuditAppends(errors.New("disk full"))

	err := s.UnitOfWork().Do(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		return repos.Audit.Append(ctx, &domain.AuditRecord{ID: uuid.New()})
	})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Audit().Len())
}

func TestAuditRepo_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Audit()
	for _, path := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Append(ctx, &domain.AuditRecord{
			ID: uuid.New(), TenantID: "t1", DocumentID: "doc", Path: path,
		}))
	}
	require.NoError(t, repo.Append(ctx, &domain.AuditRecord{ID: uuid.New(), TenantID: "t2", DocumentID: "doc"}))

	recs, total, err := repo.ListByDocument(ctx, "t1", "doc", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].Path)

	recs, _, err = repo.ListByDocument(ctx, "t1", "doc", 5, 2)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSnapshotRepo_OlderComputationIgnored(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Snapshots()
	newer := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Minute)

	build := func(at time.Time, amount int64) []domain.MonthlySnapshot {
		out := make([]domain.MonthlySnapshot, 12)
		for i := range out {
			out[i] = domain.MonthlySnapshot{
				TenantID: "t1", Year: 2024, Month: i + 1,
				Accumulated: decimal.NewFromInt(amount), State: domain.StateOK, ComputedAt: at,
			}
		}
		return out
	}

	require.NoError(t, repo.ReplaceYear(ctx, "t1", 2024, build(newer, 200)))
	err := repo.ReplaceYear(ctx, "t1", 2024, build(older, 100))
	assert.ErrorIs(t, err, domain.ErrConflictIgnored)

	snaps, err := repo.ListByYear(ctx, "t1", 2024)
	require.NoError(t, err)
	require.Len(t, snaps, 12)
	assert.True(t, snaps[0].Accumulated.Equal(decimal.NewFromInt(200)))

	require.NoError(t, repo.ReplaceYear(ctx, "t1", 2024, build(newer, 300)))
	snaps, err = repo.ListByYear(ctx, "t1", 2024)
	require.NoError(t, err)
	assert.True(t, snaps[11].Accumulated.Equal(decimal.NewFromInt(300)))
}

func TestLimitConfigRepo(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().LimitConfigs()

	_, err := repo.GetByYear(ctx, 2024)
	assert.ErrorIs(t, err, domain.ErrLimitConfigNotFound)

	err = repo.Upsert(ctx, &domain.LimitConfig{
		Year: 2024, AnnualLimit: decimal.NewFromInt(1000),
		WarnRatio: decimal.RequireFromString("0.9"), CriticalRatio: decimal.RequireFromString("0.8"),
	})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	require.NoError(t, repo.Upsert(ctx, &domain.LimitConfig{
		Year: 2024, AnnualLimit: decimal.NewFromInt(1000),
		WarnRatio: decimal.RequireFromString("0.8"), CriticalRatio: decimal.NewFromInt(1),
	}))
	cfg, err := repo.GetByYear(ctx, 2024)
	require.NoError(t, err)
	assert.True(t, cfg.AnnualLimit.Equal(decimal.NewFromInt(1000)))
}
