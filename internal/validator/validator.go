package validator

import (
	"limitguard/internal/domain"
)

// Rule is a single document validation rule. Check returns every violation
// it finds, or nil when the document passes.
type Rule interface {
	Check(doc *domain.Document) []domain.Violation
	RuleKey() string
	RuleName() string
}

// Validator evaluates all registered rules against a document.
type Validator struct {
	registry *Registry
}

// New creates a Validator loaded with the built-in document rules.
func New() *Validator {
	reg := NewRegistry()
	for _, r := range BuiltinRules() {
		reg.Register(r)
	}
	return &Validator{registry: reg}
}

// NewWithRegistry creates a Validator over a caller-supplied rule set.
func NewWithRegistry(reg *Registry) *Validator {
	return &Validator{registry: reg}
}

// Validate runs every rule and returns a *domain.ValidationError listing all
// violations, or nil if the document is valid. It has no side effects.
func (v *Validator) Validate(doc *domain.Document) error {
	var violations []domain.Violation
	for _, r := range v.registry.All() {
		violations = append(violations, r.Check(doc)...)
	}
	if len(violations) == 0 {
		return nil
	}
	return &domain.ValidationError{Violations: violations}
}
