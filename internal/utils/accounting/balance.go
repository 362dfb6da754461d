package accounting

import (
	"fmt"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest absolute difference between total debits
// and total credits that still counts as balanced.
var BalanceTolerance = decimal.New(1, -2)

// ValidateLineShape fails with domain.ErrInvalidLineShape if any line lacks
// exactly one strictly positive side.
func ValidateLineShape(lines []domain.JournalEntryLine) error {
	for i, line := range lines {
		if err := line.Amount.Validate(); err != nil {
			return fmt.Errorf("line %d (account %d): %w", i+1, line.AccountID, err)
		}
	}
	return nil
}

// ComputeBalance sums debits and credits over the non-deleted lines.
func ComputeBalance(lines []domain.JournalEntryLine) (totalDebit, totalCredit decimal.Decimal) {
	totalDebit, totalCredit = decimal.Zero, decimal.Zero
	for _, line := range lines {
		if line.IsDeleted {
			continue
		}
		totalDebit = totalDebit.Add(line.Amount.DebitAmount())
		totalCredit = totalCredit.Add(line.Amount.CreditAmount())
	}
	return totalDebit, totalCredit
}

// IsBalanced reports whether |totalDebit - totalCredit| is within BalanceTolerance.
func IsBalanced(totalDebit, totalCredit decimal.Decimal) bool {
	return totalDebit.Sub(totalCredit).Abs().LessThanOrEqual(BalanceTolerance)
}

// CheckBalance fails with domain.ErrUnbalanced when the non-deleted lines do not balance.
func CheckBalance(lines []domain.JournalEntryLine) error {
	return checkBalance(lines, domain.ErrUnbalanced)
}

// CheckRemainingBalance is CheckBalance for the lines left after a deletion,
// failing with domain.ErrWouldUnbalance instead.
func CheckRemainingBalance(lines []domain.JournalEntryLine) error {
	return checkBalance(lines, domain.ErrWouldUnbalance)
}

func checkBalance(lines []domain.JournalEntryLine, kind error) error {
	totalDebit, totalCredit := ComputeBalance(lines)
	if !IsBalanced(totalDebit, totalCredit) {
		return fmt.Errorf("%w: Debits: %s, Credits: %s", kind, FormatCurrency(totalDebit), FormatCurrency(totalCredit))
	}
	return nil
}

// TotalAmount is the sum of line values over the non-deleted lines.
func TotalAmount(lines []domain.JournalEntryLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if !line.IsDeleted {
			total = total.Add(line.Amount.Value())
		}
	}
	return total
}
