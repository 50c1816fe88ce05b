package core

// ComputeSplits divides an expense total among participants and returns one
// split per participant, in input order. The produced amounts always sum to
// the total exactly; this must be checked before anything is persisted, so a
// failed computation discards the whole operation.
//
// Equal mode ignores any supplied amounts: the total is divided with integer
// division and the remainder is handed out one cent at a time to the first
// (total mod n) participants in input order. Distributing the remainder this
// way, instead of letting the last member absorb the residue, keeps every
// share within one cent of the others and makes the rounding policy
// auditable: the extra cents always go to the earliest members of the list
// the caller supplied.
//
// Custom mode requires an amount on every participant and accepts the input
// only if the amounts sum to the total exactly. Minor-unit integers compare
// exactly; there is no epsilon.
func ComputeSplits(total Money, participants []MemberShare, mode SplitMode) ([]Split, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, ErrEmptySplit
	}
	if err := total.Validate(); err != nil {
		return nil, err
	}

	switch mode {
	case SplitEqual:
		return equalSplits(total, participants), nil
	case SplitCustom:
		return customSplits(total, participants)
	}
	return nil, ErrUnsupportedSplitMode
}

func equalSplits(total Money, participants []MemberShare) []Split {
	n := int64(len(participants))
	base := total.Cents / n
	remainder := total.Cents % n

	splits := make([]Split, len(participants))
	for i, p := range participants {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		splits[i] = Split{
			MemberID: p.MemberID,
			Amount:   Money{Cents: amount},
			Mode:     SplitEqual,
		}
	}
	return splits
}

func customSplits(total Money, participants []MemberShare) ([]Split, error) {
	splits := make([]Split, len(participants))
	var sum int64
	for i, p := range participants {
		if p.Amount == nil {
			return nil, ErrMissingSplitAmount
		}
		if *p.Amount <= 0 {
			return nil, &InvalidAmountError{Field: "split amount", Cents: *p.Amount}
		}
		sum += *p.Amount
		splits[i] = Split{
			MemberID: p.MemberID,
			Amount:   Money{Cents: *p.Amount},
			Mode:     SplitCustom,
		}
	}
	if sum != total.Cents {
		return nil, &SplitMismatchError{TotalCents: total.Cents, SumCents: sum}
	}
	return splits, nil
}
