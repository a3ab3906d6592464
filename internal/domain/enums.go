package domain

// DashboardState classifies a tenant's usage against its annual limit.
type DashboardState string

const (
	StateOK        DashboardState = "OK"
	StateNearLimit DashboardState = "NEAR_LIMIT"
	StateAtLimit   DashboardState = "AT_LIMIT"
	StateExceeded  DashboardState = "EXCEEDED"
)

// Alerting reports whether the state warrants notifying the tenant.
func (s DashboardState) Alerting() bool {
	return s == StateNearLimit || s == StateAtLimit || s == StateExceeded
}

// AuditAction identifies the kind of change recorded in the audit log.
type AuditAction string

const (
	AuditDocumentCreated      AuditAction = "document.created"
	AuditDocumentFieldUpdated AuditAction = "document.field_updated"
)

// Change sources attached to patch changes.
const (
	SourceUser   = "user"
	SourceOCR    = "ocr"
	SourceSystem = "system"
)

// EventName identifies an event kind on the event channel.
type EventName string

const (
	EventFieldsUpdated      EventName = "FieldsUpdated"
	EventLimitsRecalculated EventName = "LimitsRecalculated"
)
