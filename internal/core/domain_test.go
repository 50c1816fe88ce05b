package core

import (
	"errors"
	"testing"
)

func TestDateNext(t *testing.T) {
	tests := []struct {
		name string
		from Date
		freq Frequency
		want Date
	}{
		{"daily", NewDate(2025, 6, 1), Daily, NewDate(2025, 6, 2)},
		{"weekly", NewDate(2025, 6, 1), Weekly, NewDate(2025, 6, 8)},
		{"monthly", NewDate(2025, 6, 1), Monthly, NewDate(2025, 7, 1)},
		{"monthly across year end", NewDate(2025, 12, 15), Monthly, NewDate(2026, 1, 15)},
		{"daily across month end", NewDate(2025, 6, 30), Daily, NewDate(2025, 7, 1)},
		{"unknown frequency falls back to daily", NewDate(2025, 6, 1), Frequency("fortnightly"), NewDate(2025, 6, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.Next(tt.freq)
			if !got.Equal(tt.want.Time) {
				t.Errorf("Next(%s) = %v, want %v", tt.freq, got, tt.want)
			}
		})
	}
}

func TestFrequencyKnown(t *testing.T) {
	for _, f := range []Frequency{Daily, Weekly, Monthly} {
		if !f.Known() {
			t.Errorf("%s should be a known frequency", f)
		}
	}
	if Frequency("yearly").Known() {
		t.Error("yearly is not a supported frequency")
	}
}

func TestPaymentValidate(t *testing.T) {
	tests := []struct {
		name    string
		payment Payment
		wantErr error
	}{
		{
			name:    "valid payment",
			payment: Payment{FromMemberID: 1, ToMemberID: 2, Amount: Money{Cents: 100}},
		},
		{
			name:    "zero amount",
			payment: Payment{FromMemberID: 1, ToMemberID: 2, Amount: Money{Cents: 0}},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			payment: Payment{FromMemberID: 1, ToMemberID: 2, Amount: Money{Cents: -5}},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "self payment",
			payment: Payment{FromMemberID: 1, ToMemberID: 1, Amount: Money{Cents: 100}},
			wantErr: ErrSelfPayment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payment.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringTemplateValidate(t *testing.T) {
	valid := RecurringTemplate{
		Description:     "Rent",
		Amount:          Money{Cents: 120000},
		Frequency:       Monthly,
		SplitMode:       SplitEqual,
		SplitDefinition: []MemberShare{{MemberID: 1}, {MemberID: 2}},
		StartDate:       NewDate(2025, 1, 1),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid template should validate, got %v", err)
	}

	empty := valid
	empty.SplitDefinition = nil
	if !errors.Is(empty.Validate(), ErrEmptySplit) {
		t.Error("template without participants should fail with ErrEmptySplit")
	}

	badMode := valid
	badMode.SplitMode = SplitMode("shares")
	if !errors.Is(badMode.Validate(), ErrUnsupportedSplitMode) {
		t.Error("template with unknown split mode should fail")
	}
}
