package services

import (
	"context"
	"testing"
	"time"

	"splitledger/internal/core"
)

func TestSettlementPlan(t *testing.T) {
	repo := newMemRepo()
	repo.addGroup(1, 10, 20, 30)
	ledger, _, _ := newTestLedger(repo)
	svc := NewSettlementService(repo, ledger, &memAudit{}, core.DefaultEpsilon, nil)
	ctx := context.Background()

	// 10 pays 9000 split three ways: 10 is owed 6000, 20 and 30 owe 3000.
	if _, err := ledger.CreateExpense(ctx, CreateExpenseInput{
		GroupID: 1, Description: "trip", AmountCents: 9000, PayerID: 10,
		Date: core.NewDate(2026, 8, 1), SplitMode: core.SplitEqual,
		Participants: []core.MemberShare{{MemberID: 10}, {MemberID: 20}, {MemberID: 30}},
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	plan, err := svc.Plan(ctx, 1)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Transfers) != 2 {
		t.Fatalf("got %d transfers, want 2: %v", len(plan.Transfers), plan.Transfers)
	}
	for _, tr := range plan.Transfers {
		if tr.ToMemberID != 10 {
			t.Errorf("transfer to %d, want creditor 10", tr.ToMemberID)
		}
		if tr.Amount.Cents != 3000 {
			t.Errorf("transfer of %d cents, want 3000", tr.Amount.Cents)
		}
	}

	wantStatuses := map[int64]MemberStatus{10: StatusOwed, 20: StatusOwes, 30: StatusOwes}
	for member, want := range wantStatuses {
		if plan.Statuses[member] != want {
			t.Errorf("status of %d = %s, want %s", member, plan.Statuses[member], want)
		}
	}
	if plan.TotalOpenCents != 6000 {
		t.Errorf("TotalOpenCents = %d, want 6000", plan.TotalOpenCents)
	}
}

func TestSettlementExecuteZeroesBalances(t *testing.T) {
	restore := nowFunc
	nowFunc = func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = restore }()

	repo := newMemRepo()
	repo.addGroup(1, 10, 20, 30)
	ledger, audit, pub := newTestLedger(repo)
	svc := NewSettlementService(repo, ledger, audit, core.DefaultEpsilon, nil)
	ctx := context.Background()

	inputs := []CreateExpenseInput{
		{
			GroupID: 1, Description: "hotel", AmountCents: 30000, PayerID: 10,
			Date: core.NewDate(2026, 8, 1), SplitMode: core.SplitEqual,
			Participants: []core.MemberShare{{MemberID: 10}, {MemberID: 20}, {MemberID: 30}},
		},
		{
			GroupID: 1, Description: "fuel", AmountCents: 6000, PayerID: 20,
			Date: core.NewDate(2026, 8, 2), SplitMode: core.SplitEqual,
			Participants: []core.MemberShare{{MemberID: 20}, {MemberID: 30}},
		},
	}
	for _, in := range inputs {
		if _, err := ledger.CreateExpense(ctx, in); err != nil {
			t.Fatalf("CreateExpense(%s): %v", in.Description, err)
		}
	}

	payments, err := svc.Execute(ctx, 1, 10, "trip settlement")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(payments) == 0 {
		t.Fatal("no payments recorded")
	}
	for _, p := range payments {
		if !p.Date.Equal(core.NewDate(2026, 8, 20).Time) {
			t.Errorf("payment dated %v, want the execution date", p.Date)
		}
		if p.Description != "trip settlement" {
			t.Errorf("payment description = %q", p.Description)
		}
	}

	balances, err := ledger.GroupBalances(ctx, 1)
	if err != nil {
		t.Fatalf("GroupBalances: %v", err)
	}
	for member, cents := range balances {
		if cents > core.DefaultEpsilon || cents < -core.DefaultEpsilon {
			t.Errorf("member %d still at %d cents after settlement", member, cents)
		}
	}

	actions := audit.actions()
	if actions[len(actions)-1] != ActionExecuteSettlement {
		t.Errorf("last audit action = %s, want %s", actions[len(actions)-1], ActionExecuteSettlement)
	}
	found := false
	for _, kind := range pub.kinds {
		if kind == EventSettlementExecuted {
			found = true
		}
	}
	if !found {
		t.Errorf("settlement event not published: %v", pub.kinds)
	}
}

func TestSettlementExecuteSettledGroupIsNoop(t *testing.T) {
	repo := newMemRepo()
	repo.addGroup(1, 10, 20)
	ledger, audit, _ := newTestLedger(repo)
	svc := NewSettlementService(repo, ledger, audit, core.DefaultEpsilon, nil)
	ctx := context.Background()

	payments, err := svc.Execute(ctx, 1, 10, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("recorded %d payments on a settled group", len(payments))
	}
	if len(audit.actions()) != 0 {
		t.Errorf("audit entries recorded for a no-op settlement")
	}
}

func TestSettlementPlanIgnoresDust(t *testing.T) {
	repo := newMemRepo()
	repo.addGroup(1, 10, 20)
	ledger, _, _ := newTestLedger(repo)
	svc := NewSettlementService(repo, ledger, &memAudit{}, 100, nil)
	ctx := context.Background()

	// 10 is owed 50 cents, below the configured epsilon of a euro.
	if _, err := ledger.CreateExpense(ctx, CreateExpenseInput{
		GroupID: 1, Description: "coffee", AmountCents: 100, PayerID: 10,
		Date: core.NewDate(2026, 8, 1), SplitMode: core.SplitEqual,
		Participants: []core.MemberShare{{MemberID: 10}, {MemberID: 20}},
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	plan, err := svc.Plan(ctx, 1)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Transfers) != 0 {
		t.Errorf("got %d transfers, want none below epsilon", len(plan.Transfers))
	}
	for member, status := range plan.Statuses {
		if status != StatusSettled {
			t.Errorf("status of %d = %s, want settled", member, status)
		}
	}
}
