package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"limitguard/internal/domain"
	"limitguard/internal/port"
)

// ApplyPatch applies the changes in order against the stored document,
// revalidates the result and commits the document together with one audit
// record per change. Nothing is written unless every step succeeds.
func (s *documentService) ApplyPatch(ctx context.Context, input PatchInput) (*domain.Document, error) {
	if input.TenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	if len(input.Changes) == 0 {
		return nil, domain.ErrEmptyPatch
	}

	ctx, span := tracer.Start(ctx, "DocumentService.ApplyPatch", trace.WithAttributes(
		attribute.String("tenant_id", input.TenantID),
		attribute.String("document_id", input.DocumentID),
		attribute.Int("changes", len(input.Changes)),
	))
	defer span.End()

	paths, err := parseChangePaths(input.Changes)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	var (
		updated  *domain.Document
		prevDate string
	)
	err = s.uow.Do(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		current, err := repos.Documents.GetByID(ctx, input.TenantID, input.DocumentID)
		if err != nil {
			return err
		}
		prevDate, _ = current.IssueDate()

		next := current.Clone()
		olds := make([]domain.FieldValue, len(input.Changes))
		for i, ch := range input.Changes {
			old, _, err := next.Fields.Set(paths[i], ch.Value.Clone())
			if err != nil {
				return &domain.ValidationError{Violations: []domain.Violation{{
					Code:    domain.ViolationInvalidPath,
					Path:    ch.Path,
					Message: err.Error(),
				}}}
			}
			olds[i] = old
		}
		if err := s.validator.Validate(next); err != nil {
			return err
		}

		now := s.now()
		next.UpdatedAt = now
		for i, ch := range input.Changes {
			source := ch.Source
			if source == "" {
				source = domain.SourceUser
			}
			rec := &domain.AuditRecord{
				ID:         uuid.New(),
				TenantID:   next.TenantID,
				DocumentID: next.ID,
				Action:     domain.AuditDocumentFieldUpdated,
				Path:       ch.Path,
				OldValue:   olds[i],
				NewValue:   ch.Value.Clone(),
				Source:     source,
				ActorID:    input.ActorID,
				CreatedAt:  now,
			}
			if err := repos.Audit.Append(ctx, rec); err != nil {
				return fmt.Errorf("%w: append audit: %w", domain.ErrPersistence, err)
			}
		}
		if err := repos.Documents.Put(ctx, next); err != nil {
			return fmt.Errorf("%w: put document: %w", domain.ErrPersistence, err)
		}
		updated = next
		return nil
	})
	if err != nil {
		err = persistenceError(err)
		recordSpanError(span, err)
		s.log.WithError(err).WithFields(logrus.Fields{
			"tenant_id":   input.TenantID,
			"document_id": input.DocumentID,
		}).Warn("patch rejected")
		return nil, err
	}

	s.announce(ctx, updated, uniquePaths(input.Changes), prevDate)
	return updated, nil
}

// parseChangePaths parses every change path up front so that all malformed
// paths are reported together.
func parseChangePaths(changes []domain.PatchChange) ([]domain.Path, error) {
	paths := make([]domain.Path, len(changes))
	var violations []domain.Violation
	for i, ch := range changes {
		p, err := domain.ParsePath(ch.Path)
		if err != nil {
			violations = append(violations, domain.Violation{
				Code:    domain.ViolationInvalidPath,
				Path:    ch.Path,
				Message: err.Error(),
			})
			continue
		}
		paths[i] = p
	}
	if len(violations) > 0 {
		return nil, &domain.ValidationError{Violations: violations}
	}
	return paths, nil
}

func uniquePaths(changes []domain.PatchChange) []string {
	seen := make(map[string]struct{}, len(changes))
	out := make([]string, 0, len(changes))
	for _, ch := range changes {
		if _, ok := seen[ch.Path]; ok {
			continue
		}
		seen[ch.Path] = struct{}{}
		out = append(out, ch.Path)
	}
	return out
}
