package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidDate          = errors.New("date cannot be zero")
	ErrEmptySplit           = errors.New("no participants to split between")
	ErrUnsupportedSplitMode = errors.New("unsupported split mode")
	ErrSplitMismatch        = errors.New("split amounts do not sum to the expense total")
	ErrMissingSplitAmount   = errors.New("custom split requires an amount for every participant")
	ErrNotAMember           = errors.New("not a member of the group")
	ErrSelfPayment          = errors.New("payment sender and receiver must differ")
	ErrTemplateMalformed    = errors.New("recurring template split definition is malformed")
	ErrNotFound             = errors.New("not found")
	ErrEmptyDescription     = errors.New("empty description")
)

// SplitMismatchError reports a custom split whose supplied amounts do not
// add up to the expense total. Both sides are in minor units.
type SplitMismatchError struct {
	TotalCents int64
	SumCents   int64
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("custom split sums to %d cents, expense total is %d cents", e.SumCents, e.TotalCents)
}

func (e *SplitMismatchError) Unwrap() error { return ErrSplitMismatch }

// NotMemberError identifies a payer or participant that does not belong to
// the group an operation targets.
type NotMemberError struct {
	GroupID  int64
	MemberID int64
}

func (e *NotMemberError) Error() string {
	return fmt.Sprintf("member %d does not belong to group %d", e.MemberID, e.GroupID)
}

func (e *NotMemberError) Unwrap() error { return ErrNotAMember }

// InvalidAmountError carries the offending value for amounts that must be
// strictly positive.
type InvalidAmountError struct {
	Field string
	Cents int64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("%s must be positive, got %d cents", e.Field, e.Cents)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// TemplateMalformedError marks a recurring template whose stored split
// definition cannot be turned back into calculator input. The template is
// left due and retried on the next scheduler run.
type TemplateMalformedError struct {
	TemplateID int64
	Reason     string
}

func (e *TemplateMalformedError) Error() string {
	return fmt.Sprintf("recurring template %d: %s", e.TemplateID, e.Reason)
}

func (e *TemplateMalformedError) Unwrap() error { return ErrTemplateMalformed }
