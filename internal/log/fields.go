package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldGroupID    = "group_id"
	FieldMemberID   = "member_id"
	FieldExpenseID  = "expense_id"
	FieldPaymentID  = "payment_id"
	FieldTemplateID = "template_id"
	FieldAction     = "action"
	FieldAmount     = "amount_cents"
	FieldDuration   = "duration_ms"
)

// Standard component names.
const (
	ComponentApp       = "app"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentAudit     = "audit"
	ComponentRecurring = "recurring"
)
