package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeovahfialho/nft-ledger/internal/balance"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/jeovahfialho/nft-ledger/internal/storage/cache"
	"github.com/jeovahfialho/nft-ledger/pkg/logger"
	"github.com/jeovahfialho/nft-ledger/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const balanceKeyPrefix = "balance:"

// TransactionLister yields transactions sorted by ascending date.
type TransactionLister interface {
	ListOrdered(ctx context.Context) ([]domain.Transaction, error)
}

// Cache is the subset of cache.RedisCache used for balance series.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

type ReportService struct {
	source TransactionLister
	cache  Cache
}

// NewReportService builds a ReportService. c may be nil to disable caching.
func NewReportService(source TransactionLister, c Cache) *ReportService {
	return &ReportService{source: source, cache: c}
}

// Balances returns the running balance per date, starting from starting.
func (s *ReportService) Balances(ctx context.Context, starting decimal.Decimal) ([]domain.BalancePoint, error) {
	key := s.generateCacheKey(starting)
	log := logger.WithContext(ctx)

	if cached, err := s.getFromCache(ctx, key); err == nil {
		metrics.RecordCacheHit()
		metrics.RecordBalanceComputation("success", true)
		log.Debug("saldo servido do cache", zap.String("key", key))
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheDisabled) {
		metrics.RecordCacheMiss()
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn("erro ao ler cache de saldo", zap.String("key", key), zap.Error(err))
		}
	}

	transactions, err := s.source.ListOrdered(ctx)
	if err != nil {
		metrics.RecordBalanceComputation("error", false)
		return nil, fmt.Errorf("erro ao buscar transações: %w", err)
	}

	points, err := Compute(transactions, starting)
	if err != nil {
		metrics.RecordBalanceComputation("error", false)
		return nil, err
	}
	metrics.RecordBalanceComputation("success", false)

	if err := s.saveToCache(ctx, key, points); err != nil {
		log.Warn("erro ao salvar saldo no cache", zap.String("key", key), zap.Error(err))
	}

	log.Info("saldo calculado",
		zap.Int("transactions", len(transactions)),
		zap.Int("points", len(points)),
		zap.String("starting", starting.String()))

	return points, nil
}

// Compute runs the accumulator over already loaded transactions.
func Compute(transactions []domain.Transaction, starting decimal.Decimal) ([]domain.BalancePoint, error) {
	points, err := balance.Compute(transactions, starting)
	if err != nil {
		return nil, fmt.Errorf("erro ao calcular saldo: %w", err)
	}
	metrics.BalancePoints.Set(float64(len(points)))
	return points, nil
}

// Invalidate drops every cached balance series.
func (s *ReportService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePattern(ctx, balanceKeyPrefix+"*")
}

func (s *ReportService) generateCacheKey(starting decimal.Decimal) string {
	return balanceKeyPrefix + starting.String()
}

func (s *ReportService) getFromCache(ctx context.Context, key string) ([]domain.BalancePoint, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheDisabled
	}

	var points []domain.BalancePoint
	if err := s.cache.Get(ctx, key, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *ReportService) saveToCache(ctx context.Context, key string, points []domain.BalancePoint) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, key, points)
}
