package services

import (
	"context"
	"fmt"
	"log/slog"

	"splitledger/internal/core"
)

// CreateExpenseInput carries everything needed to enter a shared expense
// into the ledger. Participants are resolved against the group's member
// list before any computation happens.
type CreateExpenseInput struct {
	GroupID     int64
	Description string
	AmountCents int64
	PayerID     int64
	CreatorID   int64
	Date        core.Date
	SplitMode   core.SplitMode
	// Participants defines who shares the expense and, for custom splits,
	// how much each owes. Order matters for equal splits: leftover cents
	// go to the earliest entries.
	Participants []core.MemberShare
}

// CreatePaymentInput records a reimbursement from one member to another
// against an existing expense.
type CreatePaymentInput struct {
	ExpenseID    int64
	FromMemberID int64
	ToMemberID   int64
	AmountCents  int64
	Description  string
	CreatorID    int64
	Date         core.Date
}

// LedgerService owns all mutations of expenses and payments. Every write
// validates first, computes splits before touching storage, persists
// atomically through the repository, then records an audit entry and
// publishes a ledger event.
type LedgerService struct {
	repo   Repository
	audit  AuditSink
	events EventPublisher
	logger *slog.Logger
}

func NewLedgerService(repo Repository, audit AuditSink, events EventPublisher, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{repo: repo, audit: audit, events: events, logger: logger}
}

// CreateExpense validates the input, splits the amount among the
// participants and persists the expense with its splits in one write.
// Nothing is persisted if any validation or the split computation fails.
func (s *LedgerService) CreateExpense(ctx context.Context, in CreateExpenseInput) (core.Expense, error) {
	expense, err := s.buildExpense(ctx, in)
	if err != nil {
		return core.Expense{}, err
	}

	if err := s.repo.SaveExpenseWithSplits(ctx, &expense); err != nil {
		return core.Expense{}, fmt.Errorf("saving expense: %w", err)
	}

	s.audit.Record(ctx, in.GroupID, in.CreatorID, ActionCreateExpense, map[string]any{
		"expense_id":   expense.ID,
		"description":  expense.Description,
		"amount_cents": expense.Amount.Cents,
		"payer_id":     expense.PayerID,
		"split_mode":   string(expense.SplitMode),
	})
	s.publish(ctx, EventExpenseCreated, in.GroupID, expense.ID)

	return expense, nil
}

// UpdateExpense replaces an existing expense and recomputes its splits
// from the given participants. The expense keeps its identity and group.
func (s *LedgerService) UpdateExpense(ctx context.Context, expenseID int64, in CreateExpenseInput) (core.Expense, error) {
	existing, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("loading expense %d: %w", expenseID, err)
	}

	in.GroupID = existing.GroupID
	updated, err := s.buildExpense(ctx, in)
	if err != nil {
		return core.Expense{}, err
	}
	updated.ID = existing.ID
	for i := range updated.Splits {
		updated.Splits[i].ExpenseID = existing.ID
	}

	if err := s.repo.UpdateExpenseWithSplits(ctx, updated); err != nil {
		return core.Expense{}, fmt.Errorf("updating expense %d: %w", expenseID, err)
	}

	s.audit.Record(ctx, updated.GroupID, in.CreatorID, ActionUpdateExpense, map[string]any{
		"expense_id":   updated.ID,
		"description":  updated.Description,
		"amount_cents": updated.Amount.Cents,
	})
	s.publish(ctx, EventExpenseUpdated, updated.GroupID, updated.ID)

	return updated, nil
}

// DeleteExpense removes an expense together with its splits and any
// payments recorded against it.
func (s *LedgerService) DeleteExpense(ctx context.Context, expenseID, actorID int64) error {
	existing, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("loading expense %d: %w", expenseID, err)
	}
	if err := s.repo.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("deleting expense %d: %w", expenseID, err)
	}

	s.audit.Record(ctx, existing.GroupID, actorID, ActionDeleteExpense, map[string]any{
		"expense_id":  expenseID,
		"description": existing.Description,
	})
	s.publish(ctx, EventExpenseDeleted, existing.GroupID, expenseID)
	return nil
}

// CreatePayment records a reimbursement against an expense. Payer and
// recipient must both belong to the expense's group but need not appear
// in its splits: payments move balances regardless of split membership.
func (s *LedgerService) CreatePayment(ctx context.Context, in CreatePaymentInput) (core.Payment, error) {
	amount := core.Money{Cents: in.AmountCents}
	if err := amount.Validate(); err != nil {
		return core.Payment{}, err
	}
	if in.FromMemberID == in.ToMemberID {
		return core.Payment{}, core.ErrSelfPayment
	}
	if err := in.Date.Validate(); err != nil {
		return core.Payment{}, err
	}

	expense, err := s.repo.GetExpense(ctx, in.ExpenseID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("loading expense %d: %w", in.ExpenseID, err)
	}
	members, err := s.repo.GetMembers(ctx, expense.GroupID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("loading members of group %d: %w", expense.GroupID, err)
	}
	if err := checkMembership(expense.GroupID, members, in.FromMemberID); err != nil {
		return core.Payment{}, err
	}
	if err := checkMembership(expense.GroupID, members, in.ToMemberID); err != nil {
		return core.Payment{}, err
	}

	payment := core.Payment{
		ExpenseID:    in.ExpenseID,
		FromMemberID: in.FromMemberID,
		ToMemberID:   in.ToMemberID,
		Amount:       amount,
		Description:  in.Description,
		CreatorID:    in.CreatorID,
		Date:         in.Date,
	}
	if err := s.repo.SavePayment(ctx, &payment); err != nil {
		return core.Payment{}, fmt.Errorf("saving payment: %w", err)
	}

	s.audit.Record(ctx, expense.GroupID, in.CreatorID, ActionCreatePayment, map[string]any{
		"payment_id":     payment.ID,
		"expense_id":     payment.ExpenseID,
		"from_member_id": payment.FromMemberID,
		"to_member_id":   payment.ToMemberID,
		"amount_cents":   payment.Amount.Cents,
	})
	s.publish(ctx, EventPaymentRecorded, expense.GroupID, payment.ID)

	return payment, nil
}

// UpdatePayment replaces the mutable fields of an existing payment.
func (s *LedgerService) UpdatePayment(ctx context.Context, paymentID int64, in CreatePaymentInput) (core.Payment, error) {
	existing, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("loading payment %d: %w", paymentID, err)
	}

	amount := core.Money{Cents: in.AmountCents}
	if err := amount.Validate(); err != nil {
		return core.Payment{}, err
	}
	if in.FromMemberID == in.ToMemberID {
		return core.Payment{}, core.ErrSelfPayment
	}
	if err := in.Date.Validate(); err != nil {
		return core.Payment{}, err
	}

	expense, err := s.repo.GetExpense(ctx, existing.ExpenseID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("loading expense %d: %w", existing.ExpenseID, err)
	}
	members, err := s.repo.GetMembers(ctx, expense.GroupID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("loading members of group %d: %w", expense.GroupID, err)
	}
	if err := checkMembership(expense.GroupID, members, in.FromMemberID); err != nil {
		return core.Payment{}, err
	}
	if err := checkMembership(expense.GroupID, members, in.ToMemberID); err != nil {
		return core.Payment{}, err
	}

	existing.FromMemberID = in.FromMemberID
	existing.ToMemberID = in.ToMemberID
	existing.Amount = amount
	existing.Description = in.Description
	existing.Date = in.Date

	if err := s.repo.UpdatePayment(ctx, existing); err != nil {
		return core.Payment{}, fmt.Errorf("updating payment %d: %w", paymentID, err)
	}

	s.audit.Record(ctx, expense.GroupID, in.CreatorID, ActionUpdatePayment, map[string]any{
		"payment_id":   existing.ID,
		"amount_cents": existing.Amount.Cents,
	})
	s.publish(ctx, EventPaymentUpdated, expense.GroupID, existing.ID)

	return existing, nil
}

// DeletePayment removes a payment from the ledger.
func (s *LedgerService) DeletePayment(ctx context.Context, paymentID, actorID int64) error {
	existing, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("loading payment %d: %w", paymentID, err)
	}
	expense, err := s.repo.GetExpense(ctx, existing.ExpenseID)
	if err != nil {
		return fmt.Errorf("loading expense %d: %w", existing.ExpenseID, err)
	}
	if err := s.repo.DeletePayment(ctx, paymentID); err != nil {
		return fmt.Errorf("deleting payment %d: %w", paymentID, err)
	}

	s.audit.Record(ctx, expense.GroupID, actorID, ActionDeletePayment, map[string]any{
		"payment_id": paymentID,
		"expense_id": existing.ExpenseID,
	})
	s.publish(ctx, EventPaymentDeleted, expense.GroupID, paymentID)
	return nil
}

// ExpenseBalance returns each involved member's net position on a single
// expense, payments included.
func (s *LedgerService) ExpenseBalance(ctx context.Context, expenseID int64) (map[int64]int64, error) {
	expense, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("loading expense %d: %w", expenseID, err)
	}
	payments, err := s.repo.GetExpensePayments(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("loading payments of expense %d: %w", expenseID, err)
	}

	balances := make(map[int64]int64)
	seen := map[int64]struct{}{expense.PayerID: {}}
	for _, sp := range expense.Splits {
		seen[sp.MemberID] = struct{}{}
	}
	for _, p := range payments {
		seen[p.FromMemberID] = struct{}{}
		seen[p.ToMemberID] = struct{}{}
	}
	for memberID := range seen {
		balances[memberID] = core.ExpenseBalance(memberID, expense, payments)
	}
	return balances, nil
}

// GroupBalances aggregates every member's net position across all of the
// group's expenses and payments.
func (s *LedgerService) GroupBalances(ctx context.Context, groupID int64) (map[int64]int64, error) {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, fmt.Errorf("loading group %d: %w", groupID, err)
	}
	expenses, err := s.repo.GetGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading expenses of group %d: %w", groupID, err)
	}
	payments, err := s.repo.GetGroupPayments(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading payments of group %d: %w", groupID, err)
	}
	return core.GroupBalances(expenses, payments), nil
}

// buildExpense runs the validation and split pipeline shared by create
// and update without persisting anything.
func (s *LedgerService) buildExpense(ctx context.Context, in CreateExpenseInput) (core.Expense, error) {
	amount := core.Money{Cents: in.AmountCents}
	if err := amount.Validate(); err != nil {
		return core.Expense{}, err
	}
	if in.Description == "" {
		return core.Expense{}, core.ErrEmptyDescription
	}
	if err := in.Date.Validate(); err != nil {
		return core.Expense{}, err
	}

	members, err := s.repo.GetMembers(ctx, in.GroupID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("loading members of group %d: %w", in.GroupID, err)
	}
	if err := checkMembership(in.GroupID, members, in.PayerID); err != nil {
		return core.Expense{}, err
	}
	for _, p := range in.Participants {
		if err := checkMembership(in.GroupID, members, p.MemberID); err != nil {
			return core.Expense{}, err
		}
	}

	shares, err := core.ComputeSplits(amount, in.Participants, in.SplitMode)
	if err != nil {
		return core.Expense{}, err
	}

	expense := core.Expense{
		GroupID:     in.GroupID,
		Description: in.Description,
		Amount:      amount,
		PayerID:     in.PayerID,
		CreatorID:   in.CreatorID,
		Date:        in.Date,
		SplitMode:   in.SplitMode,
	}
	for _, sh := range shares {
		expense.Splits = append(expense.Splits, core.Split{
			MemberID: sh.MemberID,
			Amount:   sh.Amount,
			Mode:     in.SplitMode,
		})
	}
	return expense, nil
}

func checkMembership(groupID int64, members []core.Member, memberID int64) error {
	for _, m := range members {
		if m.MemberID == memberID {
			return nil
		}
	}
	return &core.NotMemberError{GroupID: groupID, MemberID: memberID}
}

func (s *LedgerService) publish(ctx context.Context, kind string, groupID, entityID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, kind, groupID, entityID); err != nil {
		s.logger.Error("publishing ledger event",
			"kind", kind,
			"group_id", groupID,
			"entity_id", entityID,
			"error", err)
	}
}
