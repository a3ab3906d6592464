package domain

import "github.com/shopspring/decimal"

// Event is the closed set of payloads carried by the event channel.
type Event interface {
	Name() EventName
	// Tenant returns the partition key used for ordering and locking.
	Tenant() string
	sealed()
}

// FieldsUpdated announces a committed patch. PreviousDate is set only when
// the patch changed the issue date.
type FieldsUpdated struct {
	DocumentID   string   `json:"doc_id"`
	TenantID     string   `json:"tenant_id"`
	ChangedPaths []string `json:"changed_paths"`
	DocumentDate string   `json:"document_date,omitempty"`
	PreviousDate string   `json:"previous_date,omitempty"`
}

func (FieldsUpdated) Name() EventName  { return EventFieldsUpdated }
func (e FieldsUpdated) Tenant() string { return e.TenantID }
func (FieldsUpdated) sealed()          {}

// LimitsRecalculated announces a completed 12-month recomputation.
type LimitsRecalculated struct {
	TenantID    string          `json:"tenant_id"`
	Year        int             `json:"year"`
	State       DashboardState  `json:"state"`
	Accumulated decimal.Decimal `json:"accumulated"`
	Forecast    decimal.Decimal `json:"forecast"`
}

func (LimitsRecalculated) Name() EventName  { return EventLimitsRecalculated }
func (e LimitsRecalculated) Tenant() string { return e.TenantID }
func (LimitsRecalculated) sealed()          {}
