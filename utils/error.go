package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// BalanceError reports a journal whose debit and credit totals differ.
// The journal is never persisted; the error is fatal to the operation
// that produced it and is never rounded away.
type BalanceError struct {
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("journal is not balanced: debit %s, credit %s", e.DebitTotal, e.CreditTotal)
}

// StateConflictError reports a commit/undo attempted against a record
// that is not in the required precondition state. Callers may retry
// after re-fetching state; the engine itself never retries.
type StateConflictError struct {
	Resource string
	Id       int
	Expected string
	Actual   string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %d is %s, expected %s", e.Resource, e.Id, e.Actual, e.Expected)
}

func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}

func IsBalanceError(err error) bool {
	var be *BalanceError
	return errors.As(err, &be)
}
