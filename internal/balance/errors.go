package balance

import (
	"errors"
	"fmt"
	"time"

	"github.com/jeovahfialho/nft-ledger/internal/domain"
)

var (
	ErrInvalidTransactionType = errors.New("tipo de transação inválido")
	ErrPreconditionViolation  = errors.New("transações fora de ordem de data")
)

// InvalidTransactionTypeError identifies the record whose type is neither Buy nor Sell.
type InvalidTransactionTypeError struct {
	Index       int
	Transaction domain.Transaction
}

func (e *InvalidTransactionTypeError) Error() string {
	return fmt.Sprintf("%v: %q na posição %d (data %s, preço %s)",
		ErrInvalidTransactionType,
		e.Transaction.Type,
		e.Index,
		e.Transaction.Date.Format(domain.DateFormat),
		e.Transaction.Price.String())
}

func (e *InvalidTransactionTypeError) Unwrap() error {
	return ErrInvalidTransactionType
}

// PreconditionError reports input that is not sorted and contiguous by date.
// Previous is the date of the group open when Date was seen. Repeated is set
// when Date already had its own earlier group.
type PreconditionError struct {
	Index    int
	Date     time.Time
	Previous time.Time
	Repeated bool
}

func (e *PreconditionError) Error() string {
	if e.Repeated {
		return fmt.Sprintf("%v: data %s reaparece de forma não contígua na posição %d, após %s",
			ErrPreconditionViolation,
			e.Date.Format(domain.DateFormat),
			e.Index,
			e.Previous.Format(domain.DateFormat))
	}
	return fmt.Sprintf("%v: data %s na posição %d é anterior a %s",
		ErrPreconditionViolation,
		e.Date.Format(domain.DateFormat),
		e.Index,
		e.Previous.Format(domain.DateFormat))
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionViolation
}
