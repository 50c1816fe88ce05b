package core

import (
	"strings"
	"time"
)

const (
	SplitEqual  SplitMode = "equal"
	SplitCustom SplitMode = "custom"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

type (
	// SplitMode selects how an expense amount is divided among participants.
	SplitMode string

	// Frequency is the recurrence period of a template.
	Frequency string

	// Date is a calendar date; the time component is always midnight UTC.
	Date struct {
		time.Time
	}

	// MemberShare is the calculator input for one participant. Amount is
	// required for custom splits and ignored for equal splits.
	MemberShare struct {
		MemberID int64  `json:"member_id"`
		Amount   *int64 `json:"amount,omitempty"`
	}

	// Split is one member's assigned share of an expense. Splits are created
	// atomically with their parent expense and never exist independently.
	Split struct {
		ExpenseID int64
		MemberID  int64
		Amount    Money
		Mode      SplitMode
	}

	Expense struct {
		ID          int64
		GroupID     int64
		Description string
		Amount      Money
		PayerID     int64
		CreatorID   int64
		Date        Date
		SplitMode   SplitMode
		Splits      []Split
	}

	// Payment is a transfer between two members, layered on top of an
	// expense's splits. It references the ledger entry it settles against
	// but its effect on balances is a standalone transfer.
	Payment struct {
		ID           int64
		ExpenseID    int64
		FromMemberID int64
		ToMemberID   int64
		Amount       Money
		Description  string
		CreatorID    int64
		Date         Date
		CreatedAt    time.Time
	}

	RecurringTemplate struct {
		ID              int64
		GroupID         int64
		Description     string
		Amount          Money
		Frequency       Frequency
		PayerID         int64
		CreatorID       int64
		SplitMode       SplitMode
		SplitDefinition []MemberShare
		StartDate       Date
		NextDue         Date
		Active          bool
	}

	Group struct {
		ID          int64
		Name        string
		Description string
		AdminID     int64
	}

	Member struct {
		GroupID  int64
		MemberID int64
		Nickname string
		Admin    bool
	}
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Next returns the date advanced by one period of the given frequency.
// Unknown frequencies advance by one day; callers are expected to log the
// anomaly (it is recoverable, not fatal).
func (d Date) Next(f Frequency) Date {
	switch f {
	case Daily:
		return Date{Time: d.AddDate(0, 0, 1)}
	case Weekly:
		return Date{Time: d.AddDate(0, 0, 7)}
	case Monthly:
		return Date{Time: d.AddDate(0, 1, 0)}
	default:
		return Date{Time: d.AddDate(0, 0, 1)}
	}
}

func (m SplitMode) Validate() error {
	switch m {
	case SplitEqual, SplitCustom:
		return nil
	default:
		return ErrUnsupportedSplitMode
	}
}

// Known reports whether the frequency is one of the recognized values.
// Unknown values are tolerated by the scheduler (treated as daily), so this
// is a soft check rather than a Validate().
func (f Frequency) Known() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return e.SplitMode.Validate()
}

func (p Payment) Validate() error {
	if p.Amount.Cents <= 0 {
		return &InvalidAmountError{Field: "payment amount", Cents: p.Amount.Cents}
	}
	if p.FromMemberID == p.ToMemberID {
		return ErrSelfPayment
	}
	return nil
}

func (t RecurringTemplate) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.SplitMode.Validate(); err != nil {
		return err
	}
	if err := t.StartDate.Validate(); err != nil {
		return err
	}
	if len(t.SplitDefinition) == 0 {
		return ErrEmptySplit
	}
	return nil
}
