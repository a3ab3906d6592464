package validator

import (
	"fmt"
	"regexp"

	"limitguard/internal/domain"
)

var taxpayerIDPattern = regexp.MustCompile(`^[0-9]{14}$`)

// builtinRule wraps a check function and its metadata for the registry.
type builtinRule struct {
	key   string
	name  string
	check func(*domain.Document) []domain.Violation
}

func (b *builtinRule) RuleKey() string  { return b.key }
func (b *builtinRule) RuleName() string { return b.name }

func (b *builtinRule) Check(doc *domain.Document) []domain.Violation {
	return b.check(doc)
}

// BuiltinRules returns the document rules every tenant is held to.
func BuiltinRules() []Rule {
	return []Rule{
		&builtinRule{key: "req.identity", name: "Tenant and identifier present", check: checkRequired},
		&builtinRule{key: "fmt.taxpayer_id", name: "Taxpayer identifier format", check: checkTaxpayerID},
		&builtinRule{key: "fmt.date", name: "Issue date format", check: dateRule(domain.FieldIssueDate)},
		&builtinRule{key: "fmt.due_date", name: "Due date format", check: dateRule(domain.FieldDueDate)},
		&builtinRule{key: "val.gross_amount", name: "Gross amount non-negative", check: checkGrossAmount},
	}
}

func checkRequired(doc *domain.Document) []domain.Violation {
	var out []domain.Violation
	if doc.TenantID == "" {
		out = append(out, domain.Violation{
			Code: domain.ViolationMissingField, Path: "tenant_id", Message: "tenant is required",
		})
	}
	if doc.ID == "" {
		out = append(out, domain.Violation{
			Code: domain.ViolationMissingField, Path: "id", Message: "document identifier is required",
		})
	}
	return out
}

// lookup returns the value at a well-known path, treating explicit nulls as absent.
func lookup(doc *domain.Document, field string) (domain.FieldValue, bool) {
	v, ok := doc.Fields.Get(domain.MustParsePath(field))
	if !ok || v.IsNull() {
		return domain.FieldValue{}, false
	}
	return v, true
}

func checkTaxpayerID(doc *domain.Document) []domain.Violation {
	v, ok := lookup(doc, domain.FieldTaxpayerID)
	if !ok {
		return nil
	}
	s, isStr := v.AsString()
	if isStr && taxpayerIDPattern.MatchString(s) {
		return nil
	}
	return []domain.Violation{{
		Code:    domain.ViolationInvalidIdentifier,
		Path:    domain.FieldTaxpayerID,
		Message: fmt.Sprintf("taxpayer identifier %s must be exactly 14 digits", v),
	}}
}

func dateRule(field string) func(*domain.Document) []domain.Violation {
	return func(doc *domain.Document) []domain.Violation {
		v, ok := lookup(doc, field)
		if !ok {
			return nil
		}
		s, isStr := v.AsString()
		if !isStr {
			return []domain.Violation{{
				Code: domain.ViolationInvalidDate, Path: field,
				Message: fmt.Sprintf("%s must be a YYYY-MM-DD string, got %s", field, v.Kind()),
			}}
		}
		if _, err := domain.ParseISODate(s); err != nil {
			return []domain.Violation{{Code: domain.ViolationInvalidDate, Path: field, Message: err.Error()}}
		}
		return nil
	}
}

func checkGrossAmount(doc *domain.Document) []domain.Violation {
	v, ok := lookup(doc, domain.FieldGrossAmount)
	if !ok {
		return nil
	}
	n, isNum := v.AsNumber()
	switch {
	case !isNum:
		return []domain.Violation{{
			Code: domain.ViolationInvalidAmount, Path: domain.FieldGrossAmount,
			Message: fmt.Sprintf("gross amount must be numeric, got %s", v.Kind()),
		}}
	case n.IsNegative():
		return []domain.Violation{{
			Code: domain.ViolationInvalidAmount, Path: domain.FieldGrossAmount,
			Message: fmt.Sprintf("gross amount %s is negative", n),
		}}
	}
	return nil
}
