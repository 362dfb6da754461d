package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// IsValid reports whether t is one of the five account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// IncreasesOnDebit reports whether a debit raises the balance of an account of this type.
// Assets and expenses are debit-normal; liabilities, equity and revenue are credit-normal.
func (t AccountType) IncreasesOnDebit() bool {
	return t == Asset || t == Expense
}

// Account represents a node in the chart of accounts.
type Account struct {
	AccountID       int64           `json:"accountID"`
	Code            string          `json:"code"` // Unique business key
	Name            string          `json:"name"`
	AccountType     AccountType     `json:"accountType"`
	ParentAccountID *int64          `json:"parentAccountID,omitempty"`
	Description     string          `json:"description"`
	IsActive        bool            `json:"isActive"`
	Balance         decimal.Decimal `json:"balance"` // Mutated only by posting
	AuditFields
	SoftDelete
}
