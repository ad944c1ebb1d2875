package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/jeovahfialho/nft-ledger/pkg/logger"
	"github.com/jeovahfialho/nft-ledger/pkg/metrics"
	"go.uber.org/zap"
)

type SaleService struct {
	pool *pgxpool.Pool
}

func NewSaleService(pool *pgxpool.Pool) *SaleService {
	return &SaleService{pool: pool}
}

func validateSale(s *domain.Sale) error {
	if s.AssetID <= 0 {
		return invalid("asset_id é obrigatório")
	}
	if err := checkPrice("preço de venda", s.SalePrice); err != nil {
		return err
	}
	if err := checkPrice("preço de compra", s.PurchasePrice); err != nil {
		return err
	}
	if s.SaleDate.IsZero() {
		return invalid("data de venda é obrigatória")
	}
	return nil
}

// Insert stores a sale. When PurchasePrice is zero it is copied from the asset.
func (s *SaleService) Insert(ctx context.Context, sale *domain.Sale) (int64, error) {
	if err := validateSale(sale); err != nil {
		return 0, err
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("sale_insert"))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	var asset domain.Asset
	err = tx.QueryRow(ctx, "SELECT id, purchase_price FROM assets WHERE id = $1", sale.AssetID).
		Scan(&asset.ID, &asset.PurchasePrice)
	if err != nil {
		return 0, scanErr(err, "ativo", sale.AssetID)
	}

	if sale.PurchasePrice.IsZero() {
		sale.PurchasePrice = asset.PurchasePrice
	}

	err = tx.QueryRow(ctx, `
        INSERT INTO sales (asset_id, purchase_price, sale_price, sale_date)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `, sale.AssetID, sale.PurchasePrice, sale.SalePrice, domain.DateOf(sale.SaleDate)).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("sale_insert", "error").Inc()
		return 0, fmt.Errorf("erro ao inserir venda: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("erro no commit: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("sale_insert", "success").Inc()
	logger.Info("venda inserida",
		zap.Int64("id", sale.ID),
		zap.Int64("asset_id", sale.AssetID),
		zap.String("profit", sale.Profit().String()))

	return sale.ID, nil
}

func (s *SaleService) FindByID(ctx context.Context, id int64) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.pool.QueryRow(ctx, `
        SELECT id, asset_id, purchase_price, sale_price, sale_date, created_at
        FROM sales
        WHERE id = $1
    `, id).Scan(&sale.ID, &sale.AssetID, &sale.PurchasePrice, &sale.SalePrice, &sale.SaleDate, &sale.CreatedAt)
	if err != nil {
		return nil, scanErr(err, "venda", id)
	}
	return &sale, nil
}

func (s *SaleService) List(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("sale_list"))

	var where whereClause
	if filter.AssetID != nil {
		where.add("asset_id = $%d", *filter.AssetID)
	}
	where.dateRange("sale_date", filter.From, filter.To)

	query := `
        SELECT id, asset_id, purchase_price, sale_price, sale_date, created_at
        FROM sales` + where.String() + `
        ORDER BY sale_date ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("sale_list", "error").Inc()
		return nil, fmt.Errorf("erro ao listar vendas: %w", err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0)
	for rows.Next() {
		var sale domain.Sale
		err := rows.Scan(&sale.ID, &sale.AssetID, &sale.PurchasePrice, &sale.SalePrice, &sale.SaleDate, &sale.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear venda: %w", err)
		}
		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar resultados: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("sale_list", "success").Inc()
	return sales, nil
}

func (s *SaleService) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM sales WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("erro ao remover venda %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("venda", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("erro no commit: %w", err)
	}

	logger.Info("venda removida", zap.Int64("id", id))
	return nil
}
