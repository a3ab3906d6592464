package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"limitguard/internal/domain"
	"limitguard/internal/port"
	"limitguard/internal/validator"
)

var tracer = otel.Tracer("limitguard/internal/service")

// CreateDocumentInput is the DTO for registering a new document.
type CreateDocumentInput struct {
	TenantID   string
	DocumentID string
	Fields     domain.FieldMap
	ActorID    string
}

// PatchInput is the DTO for applying an ordered list of field changes.
type PatchInput struct {
	TenantID   string
	DocumentID string
	Changes    []domain.PatchChange
	ActorID    string
}

// ExtractionInput carries the field tree produced by an external extractor.
type ExtractionInput struct {
	TenantID   string
	DocumentID string
	Fields     domain.FieldMap
	ActorID    string
}

// DocumentService defines the document mutation contract.
type DocumentService interface {
	Create(ctx context.Context, input CreateDocumentInput) (*domain.Document, error)
	GetByID(ctx context.Context, tenantID, docID string) (*domain.Document, error)
	ApplyPatch(ctx context.Context, input PatchInput) (*domain.Document, error)
	CommitExtraction(ctx context.Context, input ExtractionInput) (*domain.Document, error)
	ListAudit(ctx context.Context, tenantID, docID string, offset, limit int) ([]domain.AuditRecord, int, error)
}

type documentService struct {
	docRepo   port.DocumentRepository
	auditRepo port.DocumentAuditRepository
	uow       port.UnitOfWork
	validator *validator.Validator
	publisher port.EventPublisher
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(
	docRepo port.DocumentRepository,
	auditRepo port.DocumentAuditRepository,
	uow port.UnitOfWork,
	v *validator.Validator,
	publisher port.EventPublisher,
	log logrus.FieldLogger,
) DocumentService {
	return &documentService{
		docRepo:   docRepo,
		auditRepo: auditRepo,
		uow:       uow,
		validator: v,
		publisher: publisher,
		log:       log.WithField("component", "document_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *documentService) Create(ctx context.Context, input CreateDocumentInput) (*domain.Document, error) {
	if input.TenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	ctx, span := tracer.Start(ctx, "DocumentService.Create",
		trace.WithAttributes(attribute.String("tenant_id", input.TenantID)))
	defer span.End()

	if input.DocumentID == "" {
		input.DocumentID = uuid.NewString()
	}
	fields := input.Fields.Clone()
	if fields == nil {
		fields = domain.FieldMap{}
	}
	now := s.now()
	doc := &domain.Document{
		ID:        input.DocumentID,
		TenantID:  input.TenantID,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.validator.Validate(doc); err != nil {
		return nil, err
	}

	err := s.uow.Do(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		_, err := repos.Documents.GetByID(ctx, doc.TenantID, doc.ID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", domain.ErrDocumentExists, doc.ID)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		if err := repos.Documents.Put(ctx, doc); err != nil {
			return fmt.Errorf("%w: put document: %w", domain.ErrPersistence, err)
		}
		rec := &domain.AuditRecord{
			ID:         uuid.New(),
			TenantID:   doc.TenantID,
			DocumentID: doc.ID,
			Action:     domain.AuditDocumentCreated,
			OldValue:   domain.Null(),
			NewValue:   domain.MapValue(doc.Fields.Clone()),
			Source:     domain.SourceSystem,
			ActorID:    input.ActorID,
			CreatedAt:  now,
		}
		if err := repos.Audit.Append(ctx, rec); err != nil {
			return fmt.Errorf("%w: append audit: %w", domain.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		err = persistenceError(err)
		recordSpanError(span, err)
		return nil, err
	}

	leaves := doc.Fields.Flatten()
	paths := make([]string, 0, len(leaves))
	for _, l := range leaves {
		paths = append(paths, l.Path)
	}
	s.announce(ctx, doc, paths, "")
	return doc, nil
}

func (s *documentService) GetByID(ctx context.Context, tenantID, docID string) (*domain.Document, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	return s.docRepo.GetByID(ctx, tenantID, docID)
}

func (s *documentService) ListAudit(ctx context.Context, tenantID, docID string, offset, limit int) ([]domain.AuditRecord, int, error) {
	if tenantID == "" {
		return nil, 0, domain.ErrTenantRequired
	}
	if _, err := s.docRepo.GetByID(ctx, tenantID, docID); err != nil {
		return nil, 0, err
	}
	return s.auditRepo.ListByDocument(ctx, tenantID, docID, offset, limit)
}

// CommitExtraction turns every leaf of the extracted tree into a change with
// source "ocr" and applies them as one patch.
func (s *documentService) CommitExtraction(ctx context.Context, input ExtractionInput) (*domain.Document, error) {
	leaves := input.Fields.Flatten()
	changes := make([]domain.PatchChange, 0, len(leaves))
	for _, l := range leaves {
		changes = append(changes, domain.PatchChange{
			Path:   l.Path,
			Value:  l.Value,
			Source: domain.SourceOCR,
		})
	}
	return s.ApplyPatch(ctx, PatchInput{
		TenantID:   input.TenantID,
		DocumentID: input.DocumentID,
		Changes:    changes,
		ActorID:    input.ActorID,
	})
}

// announce publishes FieldsUpdated after a commit. The mutation is already
// durable, so a publish failure is only logged.
// announce publishes FieldsUpdated. prevDate is the issue date before the
// change and is carried only when it differs from the current one.
func (s *documentService) announce(ctx context.Context, doc *domain.Document, paths []string, prevDate string) {
	date, _ := doc.IssueDate()
	event := domain.FieldsUpdated{
		DocumentID:   doc.ID,
		TenantID:     doc.TenantID,
		ChangedPaths: paths,
		DocumentDate: date,
	}
	if prevDate != date {
		event.PreviousDate = prevDate
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"tenant_id":   doc.TenantID,
			"document_id": doc.ID,
		}).Error("failed to publish FieldsUpdated")
	}
}

// persistenceError keeps domain errors intact and classifies anything else
// as a persistence failure.
func persistenceError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDocumentExists),
		errors.Is(err, domain.ErrPersistence),
		errors.Is(err, domain.ErrTenantRequired):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
