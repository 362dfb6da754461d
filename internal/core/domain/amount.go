package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Side indicates whether a journal line is a debit or a credit.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// MaxAmountScale is the number of fractional digits the amount columns store.
const MaxAmountScale = 4

// Amount is the value carried by a journal line: either Debit(v) or Credit(v).
// The zero Amount has no side and is invalid.
type Amount struct {
	side  Side
	value decimal.Decimal
}

// Debit returns a debit amount.
func Debit(v decimal.Decimal) Amount {
	return Amount{side: SideDebit, value: v}
}

// Credit returns a credit amount.
func Credit(v decimal.Decimal) Amount {
	return Amount{side: SideCredit, value: v}
}

// NewAmount builds an Amount from a side name and a value.
func NewAmount(side Side, v decimal.Decimal) (Amount, error) {
	a := Amount{side: side, value: v}
	if err := a.Validate(); err != nil {
		return Amount{}, err
	}
	return a, nil
}

// AmountFromColumns converts the stored debit/credit column pair into an Amount.
// Exactly one of the two must be strictly positive and the other exactly zero,
// and neither may carry more than MaxAmountScale decimal places.
func AmountFromColumns(debit, credit decimal.Decimal) (Amount, error) {
	switch {
	case exceedsScale(debit) || exceedsScale(credit):
		return Amount{}, fmt.Errorf("%w: debit %s, credit %s has more than %d decimal places", ErrInvalidLineShape, debit.String(), credit.String(), MaxAmountScale)
	case debit.IsPositive() && credit.IsZero():
		return Debit(debit), nil
	case credit.IsPositive() && debit.IsZero():
		return Credit(credit), nil
	default:
		return Amount{}, fmt.Errorf("%w: debit %s, credit %s", ErrInvalidLineShape, debit.String(), credit.String())
	}
}

func exceedsScale(v decimal.Decimal) bool {
	return !v.Equal(v.Truncate(MaxAmountScale))
}

func (a Amount) Side() Side             { return a.side }
func (a Amount) Value() decimal.Decimal { return a.value }
func (a Amount) IsDebit() bool          { return a.side == SideDebit }
func (a Amount) IsCredit() bool         { return a.side == SideCredit }

// DebitAmount returns the debit column value, zero for credits.
func (a Amount) DebitAmount() decimal.Decimal {
	if a.side == SideDebit {
		return a.value
	}
	return decimal.Zero
}

// CreditAmount returns the credit column value, zero for debits.
func (a Amount) CreditAmount() decimal.Decimal {
	if a.side == SideCredit {
		return a.value
	}
	return decimal.Zero
}

// Validate fails with ErrInvalidLineShape unless the amount has a side and a positive value that fits the stored scale.
func (a Amount) Validate() error {
	if a.side != SideDebit && a.side != SideCredit {
		return fmt.Errorf("%w: line has neither a debit nor a credit", ErrInvalidLineShape)
	}
	if !a.value.IsPositive() {
		return fmt.Errorf("%w: %s amount must be greater than zero, got %s", ErrInvalidLineShape, a.side, a.value.String())
	}
	if exceedsScale(a.value) {
		return fmt.Errorf("%w: %s amount %s has more than %d decimal places", ErrInvalidLineShape, a.side, a.value.String(), MaxAmountScale)
	}
	return nil
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.side, a.value.StringFixed(2))
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Side   Side            `json:"side"`
		Amount decimal.Decimal `json:"amount"`
	}{a.side, a.value})
}
