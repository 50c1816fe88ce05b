// Package worker holds the consumers that react to ledger events.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/services"
	"splitledger/internal/storage"
)

// BalanceMonitor reacts to ledger events by recomputing the affected
// group's balances and reporting who owes whom. It is the read side of
// the event stream: the write path never waits for it.
type BalanceMonitor struct {
	storage *storage.SQLiteRepository
	logger  *slog.Logger
}

func NewBalanceMonitor(storage *storage.SQLiteRepository, logger *slog.Logger) *BalanceMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceMonitor{storage: storage, logger: logger}
}

// HandleEvent processes a single ledger event. Unknown kinds are logged
// and acknowledged so a newer publisher cannot wedge the queue.
func (m *BalanceMonitor) HandleEvent(msg *amqp.LedgerEventMessage) error {
	ctx := context.Background()

	switch msg.Kind {
	case services.EventExpenseCreated,
		services.EventExpenseUpdated,
		services.EventExpenseDeleted,
		services.EventPaymentRecorded,
		services.EventPaymentUpdated,
		services.EventPaymentDeleted,
		services.EventSettlementExecuted:
	default:
		m.logger.Warn("Unknown ledger event kind, acknowledging",
			"kind", msg.Kind,
			"group_id", msg.GroupID)
		return nil
	}

	balances, err := m.groupBalances(ctx, msg.GroupID)
	if err != nil {
		return fmt.Errorf("recompute balances for group %d: %w", msg.GroupID, err)
	}

	var owed, owing int
	var openCents int64
	for _, cents := range balances {
		switch {
		case cents > 0:
			owed++
			openCents += cents
		case cents < 0:
			owing++
		}
	}

	m.logger.InfoContext(ctx, "Group balances recomputed",
		"kind", msg.Kind,
		"group_id", msg.GroupID,
		"entity_id", msg.EntityID,
		"members", len(balances),
		"creditors", owed,
		"debtors", owing,
		"open_amount", core.Money{Cents: openCents}.String())

	return nil
}

func (m *BalanceMonitor) groupBalances(ctx context.Context, groupID int64) (map[int64]int64, error) {
	expenses, err := m.storage.GetGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	payments, err := m.storage.GetGroupPayments(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return core.GroupBalances(expenses, payments), nil
}
