package core

// Balance math. Balances are derived on demand from the expense and payment
// history handed in by the caller; they are never stored, so they cannot
// drift from the events that produce them.
//
// Sign convention: positive means the group owes the member, negative means
// the member owes the group.

// ExpenseBalance is a member's net position for a single expense and the
// payments recorded against it:
//
//	base    = (amount if member paid, else 0) - member's split share
//	balance = base - payments received + payments made
//
// Paying down a debt moves the balance toward zero from below; receiving a
// repayment reduces what the member is still owed.
func ExpenseBalance(memberID int64, e Expense, payments []Payment) int64 {
	var base int64
	if e.PayerID == memberID {
		base = e.Amount.Cents
	}
	base -= shareOf(memberID, e.Splits)

	for _, p := range payments {
		if p.ToMemberID == memberID {
			base -= p.Amount.Cents
		}
		if p.FromMemberID == memberID {
			base += p.Amount.Cents
		}
	}
	return base
}

// GroupBalances aggregates every member's net position across a group's
// whole history. Each expense credits its payer with the full amount and
// debits every split member with their share, which nets to zero; each
// payment is a standalone transfer crediting the sender and debiting the
// receiver, independent of whether either participated in the reference
// expense's splits. The returned balances therefore always sum to zero for
// any consistent history.
func GroupBalances(expenses []Expense, payments []Payment) map[int64]int64 {
	balances := make(map[int64]int64)

	for _, e := range expenses {
		balances[e.PayerID] += e.Amount.Cents
		for _, s := range e.Splits {
			balances[s.MemberID] -= s.Amount.Cents
		}
	}
	for _, p := range payments {
		balances[p.FromMemberID] += p.Amount.Cents
		balances[p.ToMemberID] -= p.Amount.Cents
	}
	return balances
}

func shareOf(memberID int64, splits []Split) int64 {
	var share int64
	for _, s := range splits {
		if s.MemberID == memberID {
			share += s.Amount.Cents
		}
	}
	return share
}
