package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("resource not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTenantRequired       = errors.New("tenant context required")
	ErrDocumentNotFound     = fmt.Errorf("document: %w", ErrNotFound)
	ErrDocumentExists       = errors.New("document already exists")
	ErrSnapshotsNotFound    = fmt.Errorf("limit snapshots: %w", ErrNotFound)
	ErrValidation           = errors.New("document validation failed")
	ErrInvalidPath          = errors.New("invalid field path")
	ErrEmptyPatch           = errors.New("patch contains no changes")
	ErrConfiguration        = errors.New("limit configuration missing or invalid")
	ErrLimitConfigNotFound  = errors.New("limit configuration not found")
	ErrPersistence          = errors.New("persistence failure")
	ErrConflictIgnored      = errors.New("superseded by a newer computation")
	ErrLockNotObtained      = errors.New("lock not obtained")
	ErrUnknownEvent         = errors.New("unknown event")
	ErrInvalidYear          = errors.New("invalid year")
	ErrStorageNotConfigured = errors.New("object storage is not configured")
)

// ViolationCode names a field-level validation rule that failed.
type ViolationCode string

const (
	ViolationInvalidIdentifier ViolationCode = "InvalidIdentifier"
	ViolationInvalidDate       ViolationCode = "InvalidDate"
	ViolationInvalidAmount     ViolationCode = "InvalidAmount"
	ViolationMissingField      ViolationCode = "MissingField"
	ViolationInvalidPath       ViolationCode = "InvalidPath"
)

// Violation is a single failed rule against a single field.
type Violation struct {
	Code    ViolationCode `json:"code"`
	Path    string        `json:"path"`
	Message string        `json:"message"`
}

// ValidationError carries every violation found in a candidate document.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s(%s)", v.Code, v.Path))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Has reports whether any violation carries the given code.
func (e *ValidationError) Has(code ViolationCode) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}
