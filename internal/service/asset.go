package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/jeovahfialho/nft-ledger/pkg/logger"
	"github.com/jeovahfialho/nft-ledger/pkg/metrics"
	"go.uber.org/zap"
)

type AssetService struct {
	pool *pgxpool.Pool
}

func NewAssetService(pool *pgxpool.Pool) *AssetService {
	return &AssetService{pool: pool}
}

func validateAsset(a *domain.Asset) error {
	if strings.TrimSpace(a.Project) == "" {
		return invalid("projeto é obrigatório")
	}
	if err := checkPrice("preço de compra", a.PurchasePrice); err != nil {
		return err
	}
	if a.PurchaseDate.IsZero() {
		return invalid("data de compra é obrigatória")
	}
	return nil
}

// Insert stores a and sets its ID and CreatedAt.
func (s *AssetService) Insert(ctx context.Context, a *domain.Asset) (int64, error) {
	if err := validateAsset(a); err != nil {
		return 0, err
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("asset_insert"))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
        INSERT INTO assets (project, purchase_price, purchase_date)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `, a.Project, a.PurchasePrice, domain.DateOf(a.PurchaseDate)).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("asset_insert", "error").Inc()
		return 0, fmt.Errorf("erro ao inserir ativo: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("erro no commit: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("asset_insert", "success").Inc()
	logger.Info("ativo inserido",
		zap.Int64("id", a.ID),
		zap.String("project", a.Project),
		zap.String("purchase_price", a.PurchasePrice.String()))

	return a.ID, nil
}

func (s *AssetService) FindByID(ctx context.Context, id int64) (*domain.Asset, error) {
	var a domain.Asset
	err := s.pool.QueryRow(ctx, `
        SELECT id, project, purchase_price, purchase_date, created_at
        FROM assets
        WHERE id = $1
    `, id).Scan(&a.ID, &a.Project, &a.PurchasePrice, &a.PurchaseDate, &a.CreatedAt)
	if err != nil {
		return nil, scanErr(err, "ativo", id)
	}
	return &a, nil
}

func (s *AssetService) List(ctx context.Context, filter domain.AssetFilter) ([]domain.Asset, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("asset_list"))

	var where whereClause
	if filter.Project != "" {
		where.add("project ILIKE $%d", "%"+filter.Project+"%")
	}
	where.dateRange("purchase_date", filter.From, filter.To)

	query := `
        SELECT id, project, purchase_price, purchase_date, created_at
        FROM assets` + where.String() + `
        ORDER BY purchase_date ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("asset_list", "error").Inc()
		return nil, fmt.Errorf("erro ao listar ativos: %w", err)
	}
	defer rows.Close()

	assets := make([]domain.Asset, 0)
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.Project, &a.PurchasePrice, &a.PurchaseDate, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("erro ao escanear ativo: %w", err)
		}
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar resultados: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("asset_list", "success").Inc()
	return assets, nil
}

func (s *AssetService) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM assets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("erro ao remover ativo %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("ativo", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("erro no commit: %w", err)
	}

	logger.Info("ativo removido", zap.Int64("id", id))
	return nil
}
