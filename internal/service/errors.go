package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("registro não encontrado")
	ErrInvalidRecord = errors.New("registro inválido")
)

func notFound(entity string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}

// Prices are stored as NUMERIC(10,2).
var maxPrice = decimal.New(1, 8)

const priceScale = 2

// checkPrice rejects prices the price columns would reject or round.
func checkPrice(field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return invalid("%s negativo: %s", field, price)
	}
	if !price.Round(priceScale).Equal(price) {
		return invalid("%s com mais de %d casas decimais: %s", field, priceScale, price)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return invalid("%s acima do limite de %s: %s", field, maxPrice, price)
	}
	return nil
}

// scanErr maps pgx.ErrNoRows to ErrNotFound.
func scanErr(err error, entity string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(entity, id)
	}
	return fmt.Errorf("erro ao buscar %s %d: %w", entity, id, err)
}
