package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SscSPs/ledgerbook/internal/apperrors"
)

// Ledger error kinds. Each wraps the apperrors category used for the client-facing response.
var (
	ErrEntryNotFound            = fmt.Errorf("%w: journal entry not found", apperrors.ErrNotFound)
	ErrLineNotFound             = fmt.Errorf("%w: journal entry line not found", apperrors.ErrNotFound)
	ErrEntryPosted              = fmt.Errorf("%w: posted entries are immutable for audit purposes", apperrors.ErrConflict)
	ErrAlreadyPosted            = fmt.Errorf("%w: journal entry is already posted", apperrors.ErrConflict)
	ErrInvalidLineShape         = fmt.Errorf("%w: each line must have exactly one of debit or credit greater than zero", apperrors.ErrValidation)
	ErrUnbalanced               = fmt.Errorf("%w: journal entry is not balanced", apperrors.ErrValidation)
	ErrUnknownOrDeletedAccounts = fmt.Errorf("%w: unknown or deleted accounts", apperrors.ErrValidation)
	ErrNoLines                  = fmt.Errorf("%w: journal entry must have at least one line", apperrors.ErrValidation)
	ErrLastLine                 = fmt.Errorf("%w: cannot delete the last remaining line, delete the journal entry instead", apperrors.ErrConflict)
	ErrWouldUnbalance           = fmt.Errorf("%w: deleting this line would leave the journal entry unbalanced", apperrors.ErrConflict)
	ErrConcurrentModification   = fmt.Errorf("%w: journal entry was modified concurrently", apperrors.ErrConflict)
	ErrUnauthorized             = fmt.Errorf("%w: an acting user is required", apperrors.ErrForbidden)
	ErrAccountInUse             = fmt.Errorf("%w: account is in use", apperrors.ErrConflict)
)

// UnknownAccountsError lists every referenced account id that does not resolve to a live account.
type UnknownAccountsError struct {
	AccountIDs []int64
}

func (e *UnknownAccountsError) Error() string {
	ids := make([]string, len(e.AccountIDs))
	for i, id := range e.AccountIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s: %s", ErrUnknownOrDeletedAccounts.Error(), strings.Join(ids, ", "))
}

func (e *UnknownAccountsError) Unwrap() error {
	return ErrUnknownOrDeletedAccounts
}
