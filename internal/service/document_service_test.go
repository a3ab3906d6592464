package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"limitguard/internal/domain"
	"limitguard/internal/repository/memory"
	"limitguard/internal/service"
	"limitguard/internal/validator"
	"limitguard/mocks"
)

func TestDocumentService_Create_Success(t *testing.T) {
	f := newFixture(t)

	doc := f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "123.50"))

	assert.Equal(t, "doc1", doc.ID)
	stored, err := f.store.Documents().GetByID(context.Background(), "t1", "doc1")
	require.NoError(t, err)
	amount, ok := stored.GrossAmount()
	require.True(t, ok)
	assert.True(t, amount.Equal(dec("123.50")))

	records, total, err := f.docs.ListAudit(context.Background(), "t1", "doc1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, domain.AuditDocumentCreated, records[0].Action)

	events := f.publisher.named(domain.EventFieldsUpdated)
	require.Len(t, events, 1)
	e := events[0].(domain.FieldsUpdated)
	assert.Equal(t, "2024-03-10", e.DocumentDate)
	assert.ElementsMatch(t, []string{"date", "issuer.taxpayer_id", "totals.gross_amount"}, e.ChangedPaths)
}

func TestDocumentService_Create_GeneratesID(t *testing.T) {
	f := newFixture(t)

	doc, err := f.docs.Create(context.Background(), service.CreateDocumentInput{TenantID: "t1"})

	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
}

func TestDocumentService_Create_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "1"))

	_, err := f.docs.Create(context.Background(), service.CreateDocumentInput{TenantID: "t1", DocumentID: "doc1"})

	assert.ErrorIs(t, err, domain.ErrDocumentExists)
}

func TestDocumentService_Create_InvalidFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.docs.Create(context.Background(), service.CreateDocumentInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Fields:     invoiceFields("2024-02-30", "-1"),
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(domain.ViolationInvalidDate))
	assert.True(t, verr.Has(domain.ViolationInvalidAmount))
	assert.Equal(t, 0, f.store.Audit().Len())
}

func TestApplyPatch_Success(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "123.50"))

	doc, err := f.docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: domain.FieldGrossAmount, Value: num("200")}},
		ActorID:    "user-1",
	})

	require.NoError(t, err)
	amount, _ := doc.GrossAmount()
	assert.True(t, amount.Equal(dec("200")))

	records, total, err := f.docs.ListAudit(context.Background(), "t1", "doc1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	latest := records[0]
	assert.Equal(t, domain.AuditDocumentFieldUpdated, latest.Action)
	assert.Equal(t, domain.FieldGrossAmount, latest.Path)
	assert.True(t, latest.OldValue.Equal(num("123.50")))
	assert.True(t, latest.NewValue.Equal(num("200")))
	assert.Equal(t, domain.SourceUser, latest.Source)
	assert.Equal(t, "user-1", latest.ActorID)

	events := f.publisher.named(domain.EventFieldsUpdated)
	require.Len(t, events, 2)
	e := events[1].(domain.FieldsUpdated)
	assert.Equal(t, []string{domain.FieldGrossAmount}, e.ChangedPaths)
	assert.Equal(t, "2024-03-10", e.DocumentDate)
	assert.Equal(t, "t1", e.TenantID)
}

func TestApplyPatch_LastWriteWins(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "1"))

	doc, err := f.docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes: []domain.PatchChange{
			{Path: "a.b", Value: num("1")},
			{Path: "a.b", Value: num("2")},
		},
	})

	require.NoError(t, err)
	v, ok := doc.Fields.Get(domain.MustParsePath("a.b"))
	require.True(t, ok)
	assert.True(t, v.Equal(num("2")))

	records, _, err := f.docs.ListAudit(context.Background(), "t1", "doc1", 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].OldValue.Equal(num("1")))
	assert.True(t, records[1].OldValue.IsNull())

	events := f.publisher.named(domain.EventFieldsUpdated)
	assert.Equal(t, []string{"a.b"}, events[len(events)-1].(domain.FieldsUpdated).ChangedPaths)
}

func TestApplyPatch_NegativeAmountLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "123.50"))
	auditBefore := f.store.Audit().Len()

	_, err := f.docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes: []domain.PatchChange{
			{Path: "notes", Value: str("ok")},
			{Path: domain.FieldGrossAmount, Value: num("-5")},
		},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(domain.ViolationInvalidAmount))

	stored, err := f.store.Documents().GetByID(context.Background(), "t1", "doc1")
	require.NoError(t, err)
	amount, _ := stored.GrossAmount()
	assert.True(t, amount.Equal(dec("123.50")))
	_, hasNotes := stored.Fields.Get(domain.MustParsePath("notes"))
	assert.False(t, hasNotes)
	assert.Equal(t, auditBefore, f.store.Audit().Len())
	assert.Len(t, f.publisher.named(domain.EventFieldsUpdated), 1)
}

func TestApplyPatch_AuditFailureIsPersistenceError(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "123.50"))
	f.store.FailAuditAppends(errors.New("disk full"))

	_, err := f.docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: domain.FieldGrossAmount, Value: num("200")}},
	})

	assert.ErrorIs(t, err, domain.ErrPersistence)
	stored, getErr := f.store.Documents().GetByID(context.Background(), "t1", "doc1")
	require.NoError(t, getErr)
	amount, _ := stored.GrossAmount()
	assert.True(t, amount.Equal(dec("123.50")))
	assert.Len(t, f.publisher.named(domain.EventFieldsUpdated), 1)
}

func TestApplyPatch_NotFound(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "1"))

	_, err := f.docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t2",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: "x", Value: num("1")}},
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyPatch_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "1"))
	ctx := context.Background()

	_, err := f.docs.ApplyPatch(ctx, service.PatchInput{DocumentID: "doc1", Changes: []domain.PatchChange{{Path: "x"}}})
	assert.ErrorIs(t, err, domain.ErrTenantRequired)

	_, err = f.docs.ApplyPatch(ctx, service.PatchInput{TenantID: "t1", DocumentID: "doc1"})
	assert.ErrorIs(t, err, domain.ErrEmptyPatch)

	_, err = f.docs.ApplyPatch(ctx, service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: "a..b", Value: num("1")}, {Path: "", Value: num("1")}},
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 2)
	assert.True(t, verr.Has(domain.ViolationInvalidPath))

	_, err = f.docs.ApplyPatch(ctx, service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: "date.year", Value: num("2024")}},
	})
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(domain.ViolationInvalidPath))
}

func TestApplyPatch_InvalidTaxpayerAndDate(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "1"))

	_, err := f.docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes: []domain.PatchChange{
			{Path: domain.FieldTaxpayerID, Value: str("1234567890123")},
			{Path: domain.FieldIssueDate, Value: str("29/02/2024")},
		},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(domain.ViolationInvalidIdentifier))
	assert.True(t, verr.Has(domain.ViolationInvalidDate))
}

func TestApplyPatch_PublishFailureStillCommits(t *testing.T) {
	store := memory.NewStore()
	pub := new(mocks.MockEventPublisher)
	log, hook := test.NewNullLogger()
	docs := service.NewDocumentService(store.Documents(), store.Audit(), store.UnitOfWork(), validator.New(), pub, log)

	require.NoError(t, store.Documents().Put(context.Background(), &domain.Document{
		ID: "doc1", TenantID: "t1", Fields: invoiceFields("2024-03-10", "1"),
	}))
	pub.On("Publish", mock.Anything, mock.AnythingOfType("domain.FieldsUpdated")).Return(errors.New("bus down"))

	doc, err := docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: domain.FieldGrossAmount, Value: num("9")}},
	})

	require.NoError(t, err)
	amount, _ := doc.GrossAmount()
	assert.True(t, amount.Equal(dec("9")))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "failed to publish FieldsUpdated", hook.LastEntry().Message)
	pub.AssertExpectations(t)
}

func TestCommitExtraction_RecordsOCRSource(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", domain.FieldMap{})

	doc, err := f.docs.CommitExtraction(context.Background(), service.ExtractionInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Fields:     invoiceFields("2024-03-10", "123.50"),
	})

	require.NoError(t, err)
	date, ok := doc.IssueDate()
	require.True(t, ok)
	assert.Equal(t, "2024-03-10", date)

	records, total, err := f.docs.ListAudit(context.Background(), "t1", "doc1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	for _, r := range records[:3] {
		assert.Equal(t, domain.SourceOCR, r.Source)
	}

	_, err = f.docs.CommitExtraction(context.Background(), service.ExtractionInput{TenantID: "t1", DocumentID: "doc1"})
	assert.ErrorIs(t, err, domain.ErrEmptyPatch)
}

func TestCommitExtraction_KeepsLineItemLists(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "10"))

	var fields domain.FieldMap
	require.NoError(t, json.Unmarshal([]byte(`{
		"totals": {"gross_amount": 30},
		"items": [{"sku": "a", "amount": 10}, {"sku": "b", "amount": 20}]
	}`), &fields))

	doc, err := f.docs.CommitExtraction(context.Background(), service.ExtractionInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Fields:     fields,
	})

	require.NoError(t, err)
	items, ok := doc.Fields.Get(domain.MustParsePath("items"))
	require.True(t, ok)
	list, ok := items.AsList()
	require.True(t, ok)
	assert.Len(t, list, 2)

	records, _, err := f.docs.ListAudit(context.Background(), "t1", "doc1", 0, 0)
	require.NoError(t, err)
	var paths []string
	for _, r := range records {
		paths = append(paths, r.Path)
	}
	assert.Contains(t, paths, "items")
}

func TestApplyPatch_PreviousDateOnlyWhenDateChanges(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "t1", "doc1", invoiceFields("2024-03-10", "100"))

	_, err := f.docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: domain.FieldGrossAmount, Value: num("120")}},
	})
	require.NoError(t, err)
	_, err = f.docs.ApplyPatch(context.Background(), service.PatchInput{
		TenantID:   "t1",
		DocumentID: "doc1",
		Changes:    []domain.PatchChange{{Path: domain.FieldIssueDate, Value: str("2024-05-01")}},
	})
	require.NoError(t, err)

	published := f.publisher.named(domain.EventFieldsUpdated)
	require.Len(t, published, 3)
	assert.Empty(t, published[0].(domain.FieldsUpdated).PreviousDate)
	assert.Empty(t, published[1].(domain.FieldsUpdated).PreviousDate)
	moved := published[2].(domain.FieldsUpdated)
	assert.Equal(t, "2024-03-10", moved.PreviousDate)
	assert.Equal(t, "2024-05-01", moved.DocumentDate)
}

func TestListAudit_UnknownDocument(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.docs.ListAudit(context.Background(), "t1", "missing", 0, 10)

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
