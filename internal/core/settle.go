package core

import "sort"

// DefaultEpsilon is the threshold below which a residual balance is treated
// as settled: one minor unit.
const DefaultEpsilon int64 = 1

// Transfer is a planned point-to-point repayment. It becomes a real Payment
// only if the caller chooses to execute it. Amount is always positive.
type Transfer struct {
	FromMemberID int64
	ToMemberID   int64
	Amount       Money
}

type party struct {
	memberID int64
	amount   int64
}

// PlanSettlement turns a set of member balances into a list of transfers
// that brings every balance to zero (within epsilon). Members with balance
// above epsilon are creditors, below -epsilon debtors; both sides are walked
// largest-first, repeatedly matching the largest remaining creditor with the
// largest remaining debtor and transferring the smaller of the two
// remainders.
//
// The greedy matching yields at most creditors+debtors-1 transfers. It is
// not guaranteed globally minimal for every input (exact minimum-transfer
// settlement is NP-hard); it is a deliberate trade-off that is minimal for
// generic amounts, and callers must treat it as a heuristic. Ordering is
// deterministic: ties on amount break on ascending member id.
//
// A non-positive epsilon falls back to DefaultEpsilon.
func PlanSettlement(balances map[int64]int64, epsilon int64) []Transfer {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}

	var creditors, debtors []party
	for memberID, balance := range balances {
		switch {
		case balance > epsilon:
			creditors = append(creditors, party{memberID: memberID, amount: balance})
		case balance < -epsilon:
			debtors = append(debtors, party{memberID: memberID, amount: -balance})
		}
	}
	sortParties(creditors)
	sortParties(debtors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		amount := min(creditors[i].amount, debtors[j].amount)
		if amount > epsilon {
			transfers = append(transfers, Transfer{
				FromMemberID: debtors[j].memberID,
				ToMemberID:   creditors[i].memberID,
				Amount:       Money{Cents: amount},
			})
			creditors[i].amount -= amount
			debtors[j].amount -= amount
		}
		if creditors[i].amount <= epsilon {
			i++
		}
		if debtors[j].amount <= epsilon {
			j++
		}
	}
	return transfers
}

func sortParties(parties []party) {
	sort.Slice(parties, func(a, b int) bool {
		if parties[a].amount != parties[b].amount {
			return parties[a].amount > parties[b].amount
		}
		return parties[a].memberID < parties[b].memberID
	})
}
