package services

import (
	"context"

	"splitledger/internal/core"
)

// Ports for outbound collaborators. The services layer never manages
// transactions itself: every write method is expected to be atomic, and
// reads return plain value types rather than live object graphs.
type (
	// Repository provides load/save of the ledger's entities. Expenses are
	// always loaded and saved together with their splits; DeleteExpense
	// cascades to the expense's splits and payments so no payment can
	// outlive the entry it settles against.
	Repository interface {
		GetGroup(ctx context.Context, groupID int64) (core.Group, error)
		GetMembers(ctx context.Context, groupID int64) ([]core.Member, error)

		GetExpense(ctx context.Context, expenseID int64) (core.Expense, error)
		GetGroupExpenses(ctx context.Context, groupID int64) ([]core.Expense, error)
		SaveExpenseWithSplits(ctx context.Context, e *core.Expense) error
		UpdateExpenseWithSplits(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, expenseID int64) error

		GetPayment(ctx context.Context, paymentID int64) (core.Payment, error)
		GetExpensePayments(ctx context.Context, expenseID int64) ([]core.Payment, error)
		GetGroupPayments(ctx context.Context, groupID int64) ([]core.Payment, error)
		SavePayment(ctx context.Context, p *core.Payment) error
		UpdatePayment(ctx context.Context, p core.Payment) error
		DeletePayment(ctx context.Context, paymentID int64) error

		GetTemplate(ctx context.Context, templateID int64) (core.RecurringTemplate, error)
		GetDueTemplates(ctx context.Context, asOf core.Date) ([]core.RecurringTemplate, error)
		SaveTemplate(ctx context.Context, t *core.RecurringTemplate) error
		UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error
		AdvanceTemplate(ctx context.Context, templateID int64, newNextDue core.Date) error
		SetTemplateActive(ctx context.Context, templateID int64, active bool) error
	}

	// AuditSink records a mutation after the fact. Record never fails:
	// implementations degrade unserializable details and swallow storage
	// errors so auditing can never block a financial write.
	AuditSink interface {
		Record(ctx context.Context, groupID, actorID int64, action string, details any)
	}

	// EventPublisher notifies downstream consumers of ledger mutations.
	// Publishing is best effort; services log failures and move on.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, kind string, groupID, entityID int64) error
	}
)

// Audit action tags, one per mutating operation.
const (
	ActionCreateExpense           = "CREATE_EXPENSE"
	ActionUpdateExpense           = "UPDATE_EXPENSE"
	ActionDeleteExpense           = "DELETE_EXPENSE"
	ActionCreatePayment           = "CREATE_PAYMENT"
	ActionUpdatePayment           = "UPDATE_PAYMENT"
	ActionDeletePayment           = "DELETE_PAYMENT"
	ActionCreateRecurringTemplate = "CREATE_RECURRING_EXPENSE_TEMPLATE"
	ActionUpdateRecurringTemplate = "UPDATE_RECURRING_EXPENSE_TEMPLATE"
	ActionExecuteSettlement       = "EXECUTE_SETTLEMENT"
)

// Ledger event kinds published to the message broker.
const (
	EventExpenseCreated     = "expense_created"
	EventExpenseUpdated     = "expense_updated"
	EventExpenseDeleted     = "expense_deleted"
	EventPaymentRecorded    = "payment_recorded"
	EventPaymentUpdated     = "payment_updated"
	EventPaymentDeleted     = "payment_deleted"
	EventSettlementExecuted = "settlement_executed"
)
