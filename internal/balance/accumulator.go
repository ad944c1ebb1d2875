// Package balance computes running balances from date-ordered transactions.
package balance

import (
	"sort"
	"time"

	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// DateGroup is a maximal contiguous run of transactions sharing one date.
// Start is the index of the first transaction of the run in the input.
type DateGroup struct {
	Date         time.Time
	Start        int
	Transactions []domain.Transaction
}

// GroupByDate splits an ascending date-ordered sequence into contiguous runs.
// A date earlier than the previous run, or a date that comes back after a
// different one, is reported as a *PreconditionError.
func GroupByDate(transactions []domain.Transaction) ([]DateGroup, error) {
	groups := make([]DateGroup, 0)

	for i, tx := range transactions {
		day := domain.DateOf(tx.Date)

		if n := len(groups); n > 0 {
			last := &groups[n-1]
			if day.Equal(last.Date) {
				last.Transactions = transactions[last.Start : i+1 : i+1]
				continue
			}
			if !day.After(last.Date) {
				return nil, &PreconditionError{
					Index:    i,
					Date:     day,
					Previous: last.Date,
					Repeated: seenBefore(groups, day),
				}
			}
		}

		groups = append(groups, DateGroup{
			Date:         day,
			Start:        i,
			Transactions: transactions[i : i+1 : i+1],
		})
	}

	return groups, nil
}

// seenBefore reports whether day opened one of groups, which are sorted by date.
func seenBefore(groups []DateGroup, day time.Time) bool {
	i := sort.Search(len(groups), func(i int) bool { return !groups[i].Date.Before(day) })
	return i < len(groups) && groups[i].Date.Equal(day)
}

// Compute applies transactions to starting and returns one BalancePoint per
// distinct date, in ascending order. Buy subtracts the price, Sell adds it.
// On any error no points are returned.
func Compute(transactions []domain.Transaction, starting decimal.Decimal) ([]domain.BalancePoint, error) {
	groups, err := GroupByDate(transactions)
	if err != nil {
		return nil, err
	}

	points := make([]domain.BalancePoint, 0, len(groups))
	balance := starting

	for _, group := range groups {
		for j, tx := range group.Transactions {
			switch tx.Type {
			case domain.Buy:
				balance = balance.Sub(tx.Price)
			case domain.Sell:
				balance = balance.Add(tx.Price)
			default:
				return nil, &InvalidTransactionTypeError{Index: group.Start + j, Transaction: tx}
			}
		}

		points = append(points, domain.BalancePoint{Date: group.Date, Balance: balance})
	}

	return points, nil
}

// Net returns the sum of Sell prices minus the sum of Buy prices.
func Net(transactions []domain.Transaction) (decimal.Decimal, error) {
	net := decimal.Zero
	for i, tx := range transactions {
		switch tx.Type {
		case domain.Buy:
			net = net.Sub(tx.Price)
		case domain.Sell:
			net = net.Add(tx.Price)
		default:
			return decimal.Zero, &InvalidTransactionTypeError{Index: i, Transaction: tx}
		}
	}
	return net, nil
}
