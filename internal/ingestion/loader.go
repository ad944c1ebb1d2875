package ingestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var transactionColumns = []string{
	"price",
	"date",
	"type",
	"import_batch",
}

type BulkLoader struct {
	pool      *pgxpool.Pool
	batchSize int
}

func NewBulkLoader(pool *pgxpool.Pool, batchSize int) *BulkLoader {
	if batchSize < 1 {
		batchSize = 1
	}
	return &BulkLoader{
		pool:      pool,
		batchSize: batchSize,
	}
}

// LoadTransactions copies txs in chunks inside a single database transaction,
// so a file is either fully loaded or not at all. Chunks are copied in order,
// keeping the generated ids in file order.
func (l *BulkLoader) LoadTransactions(ctx context.Context, batch uuid.UUID, txs []domain.Transaction) (int64, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	for _, chunk := range splitIntoChunks(txs, l.batchSize) {
		copyCount, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"transactions"},
			transactionColumns,
			newTransactionSource(batch, chunk),
		)
		if err != nil {
			return 0, fmt.Errorf("erro no COPY: %w", err)
		}
		total += copyCount
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("erro no commit: %w", err)
	}

	return total, nil
}

type transactionSource struct {
	batch pgtype.UUID
	txs   []domain.Transaction
	index int
}

func newTransactionSource(batch uuid.UUID, txs []domain.Transaction) *transactionSource {
	return &transactionSource{
		batch: pgtype.UUID{Bytes: batch, Valid: true},
		txs:   txs,
	}
}

func (ts *transactionSource) Next() bool {
	ts.index++
	return ts.index <= len(ts.txs)
}

func (ts *transactionSource) Values() ([]interface{}, error) {
	if ts.index > len(ts.txs) {
		return nil, nil
	}

	t := ts.txs[ts.index-1]
	return []interface{}{
		numeric(t.Price),
		domain.DateOf(t.Date),
		string(t.Type),
		ts.batch,
	}, nil
}

func (ts *transactionSource) Err() error {
	return nil
}

// numeric converts d for the binary COPY protocol.
func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func splitIntoChunks(txs []domain.Transaction, size int) [][]domain.Transaction {
	var chunks [][]domain.Transaction

	for i := 0; i < len(txs); i += size {
		end := i + size
		if end > len(txs) {
			end = len(txs)
		}
		chunks = append(chunks, txs[i:end])
	}

	return chunks
}
