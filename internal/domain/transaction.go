package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DateFormat = "2006-01-02"

type TransactionType string

const (
	Buy  TransactionType = "Buy"
	Sell TransactionType = "Sell"
)

func (t TransactionType) Valid() bool {
	return t == Buy || t == Sell
}

// ParseTransactionType matches "buy"/"sell" in any case. Other values are
// returned verbatim so callers can decide how to reject them.
func ParseTransactionType(s string) TransactionType {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, string(Buy)):
		return Buy
	case strings.EqualFold(s, string(Sell)):
		return Sell
	default:
		return TransactionType(s)
	}
}

// Transaction is the shape consumed by the balance accumulator.
type Transaction struct {
	Price decimal.Decimal `db:"price" json:"price" yaml:"price"`
	Date  time.Time       `db:"date" json:"date" yaml:"date"`
	Type  TransactionType `db:"type" json:"type" yaml:"type"`
}

// TransactionRecord is a stored transaction row.
type TransactionRecord struct {
	ID int64 `db:"id" json:"id"`
	Transaction
	ImportBatch *uuid.UUID `db:"import_batch" json:"import_batch,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

type TransactionFilter struct {
	Type TransactionType
	From *time.Time
	To   *time.Time
}

// BalancePoint is the balance after every transaction dated on or before Date.
type BalancePoint struct {
	Date    time.Time       `json:"date" yaml:"date"`
	Balance decimal.Decimal `json:"balance" yaml:"balance"`
}

// DateOf truncates t to its calendar day at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
