package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Well-known field paths inside a document's field tree.
const (
	FieldIssueDate   = "date"
	FieldDueDate     = "due_date"
	FieldGrossAmount = "totals.gross_amount"
	FieldTaxpayerID  = "issuer.taxpayer_id"
)

var (
	issueDatePath   = MustParsePath(FieldIssueDate)
	grossAmountPath = MustParsePath(FieldGrossAmount)
)

// Document is a tenant-owned record whose content lives in a nested field tree.
type Document struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Fields    FieldMap  `db:"fields" json:"fields"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IssueDate returns the raw `date` field when it is a string.
func (d *Document) IssueDate() (string, bool) {
	v, ok := d.Fields.Get(issueDatePath)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// IssueTime parses the issue date. ok is false when the date is absent or malformed.
func (d *Document) IssueTime() (time.Time, bool) {
	raw, ok := d.IssueDate()
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseISODate(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// GrossAmount returns totals.gross_amount when it is numeric.
func (d *Document) GrossAmount() (decimal.Decimal, bool) {
	v, ok := d.Fields.Get(grossAmountPath)
	if !ok {
		return decimal.Zero, false
	}
	return v.AsNumber()
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	out.Fields = d.Fields.Clone()
	if out.Fields == nil {
		out.Fields = FieldMap{}
	}
	return &out
}

// DocumentFilter scopes a document lookup to one tenant and fiscal year,
// optionally narrowed to a set of identifiers.
type DocumentFilter struct {
	TenantID    string
	Year        int
	DocumentIDs []string
}

// PatchChange is one field assignment within a patch.
type PatchChange struct {
	Path   string     `json:"path" binding:"required"`
	Value  FieldValue `json:"value"`
	Source string     `json:"source"`
}

// AuditRecord is an immutable entry of the document audit trail.
type AuditRecord struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	TenantID   string      `db:"tenant_id" json:"tenant_id"`
	DocumentID string      `db:"document_id" json:"document_id"`
	Action     AuditAction `db:"action" json:"action"`
	Path       string      `db:"path" json:"path"`
	OldValue   FieldValue  `db:"old_value" json:"old_value"`
	NewValue   FieldValue  `db:"new_value" json:"new_value"`
	Source     string      `db:"source" json:"source"`
	ActorID    string      `db:"actor_id" json:"actor_id"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// MonthlySnapshot is the persisted compliance state of one tenant/year/month.
type MonthlySnapshot struct {
	TenantID    string          `db:"tenant_id" json:"tenant_id"`
	Year        int             `db:"year" json:"year"`
	Month       int             `db:"month" json:"month"`
	Accumulated decimal.Decimal `db:"accumulated" json:"accumulated"`
	Forecast    decimal.Decimal `db:"forecast" json:"forecast"`
	State       DashboardState  `db:"state" json:"state"`
	ComputedAt  time.Time       `db:"computed_at" json:"computed_at"`
}

// Dashboard is the compliance view of a tenant for one fiscal year.
type Dashboard struct {
	TenantID    string            `json:"tenant_id"`
	Year        int               `json:"year"`
	Month       int               `json:"month"`
	State       DashboardState    `json:"state"`
	Accumulated decimal.Decimal   `json:"accumulated"`
	Forecast    decimal.Decimal   `json:"forecast"`
	ComputedAt  time.Time         `json:"computed_at"`
	Snapshots   []MonthlySnapshot `json:"snapshots"`
}

// LimitAlert is sent to tenant contacts when a recalculation lands in an alerting state.
type LimitAlert struct {
	TenantID    string
	Year        int
	State       DashboardState
	Accumulated decimal.Decimal
	Forecast    decimal.Decimal
}
