package models

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

// Account is a row of the accounts table.
type Account struct {
	AccountID       int64           `db:"account_id"`
	Code            string          `db:"code"`
	Name            string          `db:"name"`
	AccountType     AccountType     `db:"account_type"`
	ParentAccountID *int64          `db:"parent_account_id"` // Nullable
	Description     string          `db:"description"`
	IsActive        bool            `db:"is_active"`
	Balance         decimal.Decimal `db:"balance"`
	AuditFields
	SoftDelete
}
