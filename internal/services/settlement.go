package services

import (
	"context"
	"fmt"
	"log/slog"

	"splitledger/internal/core"
)

// MemberStatus classifies a member's net position within a group.
type MemberStatus string

const (
	StatusOwed    MemberStatus = "owed"
	StatusOwes    MemberStatus = "owes"
	StatusSettled MemberStatus = "settled"
)

// PlanResult is a settlement proposal: the transfers that would settle
// the group plus each member's current standing.
type PlanResult struct {
	Transfers []core.Transfer
	Statuses  map[int64]MemberStatus
	// TotalOpenCents is the sum owed to creditors above the epsilon,
	// i.e. the amount that would change hands if the plan is executed.
	TotalOpenCents int64
}

// SettlementService turns a group's net balances into a minimal set of
// reimbursements and, on request, records them as payments.
type SettlementService struct {
	repo    Repository
	ledger  *LedgerService
	audit   AuditSink
	epsilon int64
	logger  *slog.Logger
}

func NewSettlementService(repo Repository, ledger *LedgerService, audit AuditSink, epsilon int64, logger *slog.Logger) *SettlementService {
	if epsilon < 0 {
		epsilon = core.DefaultEpsilon
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SettlementService{repo: repo, ledger: ledger, audit: audit, epsilon: epsilon, logger: logger}
}

// Plan computes the transfers that would settle the group without
// recording anything.
func (s *SettlementService) Plan(ctx context.Context, groupID int64) (PlanResult, error) {
	balances, err := s.ledger.GroupBalances(ctx, groupID)
	if err != nil {
		return PlanResult{}, err
	}

	res := PlanResult{
		Transfers: core.PlanSettlement(balances, s.epsilon),
		Statuses:  make(map[int64]MemberStatus, len(balances)),
	}
	for memberID, cents := range balances {
		switch {
		case cents > s.epsilon:
			res.Statuses[memberID] = StatusOwed
			res.TotalOpenCents += cents
		case cents < -s.epsilon:
			res.Statuses[memberID] = StatusOwes
		default:
			res.Statuses[memberID] = StatusSettled
		}
	}
	return res, nil
}

// Execute plans the settlement and records each transfer as a payment.
// Payments attach to the debtor's most recent expense, falling back to
// the group's latest expense when the debtor never paid for one. A group
// with no expenses cannot carry debt, so the fallback always resolves
// when there is anything to settle.
func (s *SettlementService) Execute(ctx context.Context, groupID, actorID int64, description string) ([]core.Payment, error) {
	plan, err := s.Plan(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(plan.Transfers) == 0 {
		return nil, nil
	}
	if description == "" {
		description = "settlement"
	}

	expenses, err := s.repo.GetGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading expenses of group %d: %w", groupID, err)
	}

	today := core.DateOf(nowFunc())
	payments := make([]core.Payment, 0, len(plan.Transfers))
	for _, t := range plan.Transfers {
		ref, ok := referenceExpense(expenses, t.FromMemberID)
		if !ok {
			return payments, fmt.Errorf("no expense in group %d to attach settlement to: %w", groupID, core.ErrNotFound)
		}
		p, err := s.ledger.CreatePayment(ctx, CreatePaymentInput{
			ExpenseID:    ref.ID,
			FromMemberID: t.FromMemberID,
			ToMemberID:   t.ToMemberID,
			AmountCents:  t.Amount.Cents,
			Description:  description,
			CreatorID:    actorID,
			Date:         today,
		})
		if err != nil {
			return payments, fmt.Errorf("recording settlement payment of %d cents from %d to %d: %w",
				t.Amount.Cents, t.FromMemberID, t.ToMemberID, err)
		}
		payments = append(payments, p)
	}

	s.audit.Record(ctx, groupID, actorID, ActionExecuteSettlement, map[string]any{
		"transfers":   len(payments),
		"total_cents": plan.TotalOpenCents,
		"description": description,
	})
	if s.ledger.events != nil {
		if err := s.ledger.events.PublishLedgerEvent(ctx, EventSettlementExecuted, groupID, 0); err != nil {
			s.logger.Error("publishing settlement event", "group_id", groupID, "error", err)
		}
	}

	return payments, nil
}

// referenceExpense picks the newest expense paid by the member, or the
// group's newest expense when the member paid for none. GetGroupExpenses
// returns newest first.
func referenceExpense(expenses []core.Expense, memberID int64) (core.Expense, bool) {
	for _, e := range expenses {
		if e.PayerID == memberID {
			return e, true
		}
	}
	if len(expenses) > 0 {
		return expenses[0], true
	}
	return core.Expense{}, false
}
