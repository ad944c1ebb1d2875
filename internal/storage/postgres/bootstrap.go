package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/nft-ledger/pkg/logger"
	"go.uber.org/zap"
)

const maintenanceDatabase = "postgres"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		id             BIGSERIAL PRIMARY KEY,
		project        VARCHAR(255) NOT NULL,
		purchase_price NUMERIC(10,2) NOT NULL CHECK (purchase_price >= 0),
		purchase_date  DATE NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id             BIGSERIAL PRIMARY KEY,
		asset_id       BIGINT NOT NULL REFERENCES assets(id),
		purchase_price NUMERIC(10,2) NOT NULL CHECK (purchase_price >= 0),
		sale_price     NUMERIC(10,2) NOT NULL CHECK (sale_price >= 0),
		sale_date      DATE NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id           BIGSERIAL PRIMARY KEY,
		price        NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		date         DATE NOT NULL,
		type         VARCHAR(8) NOT NULL CHECK (type IN ('Buy', 'Sell')),
		import_batch UUID,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (date, id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_asset ON sales (asset_id)`,
}

// EnsureDatabase creates the database named in dsn when it does not exist,
// connecting through the maintenance database. It reports whether it created it.
func EnsureDatabase(ctx context.Context, dsn string) (bool, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return false, fmt.Errorf("erro ao parsear config: %w", err)
	}

	name := connConfig.Database
	if name == "" || name == maintenanceDatabase {
		return false, nil
	}
	connConfig.Database = maintenanceDatabase

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return false, fmt.Errorf("erro ao conectar no banco de manutenção: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("erro ao verificar banco %s: %w", name, err)
	}
	if exists {
		logger.Debug("banco de dados encontrado", zap.String("database", name))
		return false, nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return false, fmt.Errorf("erro ao criar banco %s: %w", name, err)
	}

	logger.Info("banco de dados criado", zap.String("database", name))
	return true, nil
}

// EnsureSchema creates the tables and indexes used by the services.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("erro ao criar schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("erro no commit: %w", err)
	}
	return nil
}
