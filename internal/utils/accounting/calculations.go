package accounting

import (
	"fmt"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CalculateSignedAmount applies the correct sign to a line amount based on the account type.
// This is the amount by which posting the line moves the account balance.
func CalculateSignedAmount(amount domain.Amount, accountType domain.AccountType) (decimal.Decimal, error) {
	signedAmount := amount.Value()

	// DEBIT to ASSET/EXPENSE -> Positive (+)
	// CREDIT to ASSET/EXPENSE -> Negative (-)
	// DEBIT to LIABILITY/EQUITY/REVENUE -> Negative (-)
	// CREDIT to LIABILITY/EQUITY/REVENUE -> Positive (+)
	switch accountType {
	case domain.Asset, domain.Expense:
		if !amount.IsDebit() {
			signedAmount = signedAmount.Neg()
		}
	case domain.Liability, domain.Equity, domain.Revenue:
		if amount.IsDebit() {
			signedAmount = signedAmount.Neg()
		}
	default:
		return decimal.Zero, fmt.Errorf("unknown account type '%s'", accountType)
	}
	return signedAmount, nil
}

// BalanceChanges nets the signed effect of every non-deleted line per account.
// Every referenced account must be present in accounts.
func BalanceChanges(lines []domain.JournalEntryLine, accounts map[int64]domain.Account) (map[int64]decimal.Decimal, error) {
	changes := make(map[int64]decimal.Decimal)
	for _, line := range lines {
		if line.IsDeleted {
			continue
		}
		account, ok := accounts[line.AccountID]
		if !ok {
			return nil, fmt.Errorf("account %d not loaded for balance change", line.AccountID)
		}
		signed, err := CalculateSignedAmount(line.Amount, account.AccountType)
		if err != nil {
			return nil, fmt.Errorf("error calculating signed amount for account %d: %w", line.AccountID, err)
		}
		changes[line.AccountID] = changes[line.AccountID].Add(signed)
	}
	return changes, nil
}
