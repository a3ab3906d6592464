package service_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"limitguard/internal/domain"
	"limitguard/internal/repository/memory"
	"limitguard/internal/service"
	"limitguard/internal/validator"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) named(name domain.EventName) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func num(s string) domain.FieldValue {
	return domain.NumberValue(decimal.RequireFromString(s))
}

func str(s string) domain.FieldValue {
	return domain.StringValue(s)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// invoiceFields builds a valid field tree.
func invoiceFields(date, amount string) domain.FieldMap {
	f := domain.FieldMap{}
	_, _, _ = f.Set(domain.MustParsePath(domain.FieldIssueDate), str(date))
	_, _, _ = f.Set(domain.MustParsePath(domain.FieldGrossAmount), num(amount))
	_, _, _ = f.Set(domain.MustParsePath(domain.FieldTaxpayerID), str("12345678901234"))
	return f
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	docs      service.DocumentService
	limits    service.LimitsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	log := quietLogger()
	f := &fixture{
		store:     store,
		publisher: pub,
		docs: service.NewDocumentService(store.Documents(), store.Audit(), store.UnitOfWork(),
			validator.New(), pub, log),
		limits: service.NewLimitsService(store.Documents(), store.Snapshots(), store.LimitConfigs(),
			nil, pub, service.LimitsOptions{}, log),
	}
	require.NoError(t, store.LimitConfigs().Upsert(context.Background(), &domain.LimitConfig{
		Year:          2024,
		AnnualLimit:   dec("1000"),
		WarnRatio:     dec("0.8"),
		CriticalRatio: dec("1"),
	}))
	return f
}

func (f *fixture) seed(t *testing.T, tenantID, docID string, fields domain.FieldMap) *domain.Document {
	t.Helper()
	doc, err := f.docs.Create(context.Background(), service.CreateDocumentInput{
		TenantID:   tenantID,
		DocumentID: docID,
		Fields:     fields,
		ActorID:    "seed",
	})
	require.NoError(t, err)
	return doc
}
