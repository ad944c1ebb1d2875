package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/jeovahfialho/nft-ledger/pkg/logger"
	"github.com/jeovahfialho/nft-ledger/pkg/metrics"
	"go.uber.org/zap"
)

// Invalidator drops anything derived from the transactions table.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type TransactionService struct {
	pool        *pgxpool.Pool
	invalidator Invalidator
}

func NewTransactionService(pool *pgxpool.Pool) *TransactionService {
	return &TransactionService{pool: pool}
}

// OnChange registers inv to be called after every committed mutation.
func (s *TransactionService) OnChange(inv Invalidator) {
	s.invalidator = inv
}

func (s *TransactionService) changed(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		logger.Warn("erro ao invalidar cache de saldo", zap.Error(err))
	}
}

func ValidateTransaction(t domain.Transaction) error {
	if !t.Type.Valid() {
		return invalid("tipo %q (esperado Buy ou Sell)", t.Type)
	}
	if err := checkPrice("preço", t.Price); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return invalid("data é obrigatória")
	}
	return nil
}

func (s *TransactionService) Insert(ctx context.Context, rec *domain.TransactionRecord) (int64, error) {
	if err := ValidateTransaction(rec.Transaction); err != nil {
		return 0, err
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("transaction_insert"))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
        INSERT INTO transactions (price, date, type, import_batch)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `, rec.Price, domain.DateOf(rec.Date), string(rec.Type), rec.ImportBatch).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("transaction_insert", "error").Inc()
		return 0, fmt.Errorf("erro ao inserir transação: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("erro no commit: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("transaction_insert", "success").Inc()
	logger.Info("transação inserida",
		zap.Int64("id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.String("price", rec.Price.String()),
		zap.String("date", rec.Date.Format(domain.DateFormat)))

	s.changed(ctx)
	return rec.ID, nil
}

func (s *TransactionService) FindByID(ctx context.Context, id int64) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	var typ string
	err := s.pool.QueryRow(ctx, `
        SELECT id, price, date, type, import_batch, created_at
        FROM transactions
        WHERE id = $1
    `, id).Scan(&rec.ID, &rec.Price, &rec.Date, &typ, &rec.ImportBatch, &rec.CreatedAt)
	if err != nil {
		return nil, scanErr(err, "transação", id)
	}
	rec.Type = domain.TransactionType(typ)
	return &rec, nil
}

func (s *TransactionService) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("transaction_list"))

	var where whereClause
	if filter.Type != "" {
		where.add("type = $%d", string(filter.Type))
	}
	where.dateRange("date", filter.From, filter.To)

	query := `
        SELECT id, price, date, type, import_batch, created_at
        FROM transactions` + where.String() + `
        ORDER BY date ASC, id ASC`

	logger.Debug("executando query de transações",
		zap.String("type", string(filter.Type)),
		zap.Any("from", filter.From),
		zap.Any("to", filter.To))

	rows, err := s.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("transaction_list", "error").Inc()
		return nil, fmt.Errorf("erro ao listar transações: %w", err)
	}
	defer rows.Close()

	records := make([]domain.TransactionRecord, 0)
	for rows.Next() {
		var rec domain.TransactionRecord
		var typ string
		if err := rows.Scan(&rec.ID, &rec.Price, &rec.Date, &typ, &rec.ImportBatch, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("erro ao escanear transação: %w", err)
		}
		rec.Type = domain.TransactionType(typ)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar resultados: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("transaction_list", "success").Inc()
	return records, nil
}

// ListOrdered returns price, date and type of every transaction by ascending date.
// Rows sharing a date come back in insertion order.
func (s *TransactionService) ListOrdered(ctx context.Context) ([]domain.Transaction, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("list_ordered"))

	rows, err := s.pool.Query(ctx, `
        SELECT price, date, type
        FROM transactions
        ORDER BY date ASC, id ASC
    `)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("list_ordered", "error").Inc()
		return nil, fmt.Errorf("erro ao buscar transações: %w", err)
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		var t domain.Transaction
		var typ string
		if err := rows.Scan(&t.Price, &t.Date, &typ); err != nil {
			return nil, fmt.Errorf("erro ao escanear transação: %w", err)
		}
		t.Type = domain.TransactionType(typ)
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar resultados: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("list_ordered", "success").Inc()
	logger.Debug("transações ordenadas recuperadas", zap.Int("records", len(transactions)))

	return transactions, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("erro ao remover transação %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("transação", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("erro no commit: %w", err)
	}

	logger.Info("transação removida", zap.Int64("id", id))
	s.changed(ctx)
	return nil
}

// DeleteBatch removes every transaction loaded by one import run.
func (s *TransactionService) DeleteBatch(ctx context.Context, batch uuid.UUID) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM transactions WHERE import_batch = $1", batch)
	if err != nil {
		return 0, fmt.Errorf("erro ao remover lote %s: %w", batch, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("erro no commit: %w", err)
	}

	logger.Info("lote de importação removido",
		zap.String("import_batch", batch.String()),
		zap.Int64("records", tag.RowsAffected()))

	if tag.RowsAffected() > 0 {
		s.changed(ctx)
	}
	return tag.RowsAffected(), nil
}
