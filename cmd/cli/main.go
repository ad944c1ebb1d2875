package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeovahfialho/nft-ledger/internal/config"
	"github.com/jeovahfialho/nft-ledger/internal/service"
	"github.com/jeovahfialho/nft-ledger/internal/storage/cache"
	"github.com/jeovahfialho/nft-ledger/internal/storage/postgres"
	"github.com/jeovahfialho/nft-ledger/pkg/logger"
	"github.com/jeovahfialho/nft-ledger/pkg/metrics"
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Error("comando falhou", zap.Error(err))
	}

	writeMetrics()
	logger.Close()
	stop()

	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nft-ledger",
		Short: "Controle de compras e vendas de NFTs",
		Long: `CLI para registrar compras e vendas de NFTs no PostgreSQL
e acompanhar o saldo acumulado ao longo do tempo.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			cfg = loaded

			if err := logger.Init(cfg.LogLevel, cfg.Environment == "development"); err != nil {
				return fmt.Errorf("erro ao iniciar logger: %w", err)
			}

			runID := uuid.NewString()
			cmd.SetContext(logger.ContextWithRunID(cmd.Context(), runID))
			logger.Debug("comando iniciado", zap.String("command", cmd.CommandPath()), zap.String("run_id", runID))
			return nil
		},
	}

	rootCmd.AddCommand(
		newInitDBCmd(),
		newAssetCmd(),
		newSaleCmd(),
		newTxCmd(),
		newImportCmd(),
		newBalanceCmd(),
		newHealthCmd(),
	)
	return rootCmd
}

// app holds the connections and services shared by the database commands.
type app struct {
	db      *postgres.DB
	cache   *cache.RedisCache
	assets  *service.AssetService
	sales   *service.SaleService
	txs     *service.TransactionService
	reports *service.ReportService
}

// connect opens Postgres (creating database and schema when needed) and,
// when configured, Redis. A missing Redis only disables the cache.
func connect(ctx context.Context) (*app, error) {
	db, err := connectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := postgres.EnsureSchema(ctx, db.Pool()); err != nil {
		db.Close()
		return nil, err
	}

	a := &app{
		db:     db,
		assets: service.NewAssetService(db.Pool()),
		sales:  service.NewSaleService(db.Pool()),
		txs:    service.NewTransactionService(db.Pool()),
	}

	var reportCache service.Cache
	if redisCache := connectRedis(ctx, cfg); redisCache != nil {
		a.cache = redisCache
		reportCache = redisCache
	}
	a.reports = service.NewReportService(a.txs, reportCache)
	a.txs.OnChange(a.reports)

	return a, nil
}

func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	a.db.Close()
}

// connectDB conecta ao PostgreSQL
func connectDB(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	if cfg.DatabaseCreate {
		if _, err := postgres.EnsureDatabase(ctx, cfg.DatabaseDSN()); err != nil {
			return nil, err
		}
	}

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("erro ao conectar ao banco: %w", err)
	}
	return db, nil
}

// connectRedis conecta ao Redis
func connectRedis(ctx context.Context, cfg *config.Config) *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(ctx, cfg)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheDisabled) {
			fmt.Printf("⚠️  Aviso: Redis não disponível, continuando sem cache: %v\n", err)
		}
		return nil
	}
	return redisCache
}

func writeMetrics() {
	if cfg == nil || !cfg.MetricsEnabled || cfg.MetricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Warn("erro ao gravar métricas", zap.Error(err))
	}
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Cria o banco de dados e as tabelas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			created, err := postgres.EnsureDatabase(ctx, cfg.DatabaseDSN())
			if err != nil {
				return err
			}
			if created {
				fmt.Println("✅ Banco de dados criado")
			} else {
				fmt.Println("📦 Banco de dados já existe")
			}

			db, err := postgres.NewDB(ctx, cfg)
			if err != nil {
				return fmt.Errorf("erro ao conectar ao banco: %w", err)
			}
			defer db.Close()

			if err := postgres.EnsureSchema(ctx, db.Pool()); err != nil {
				return err
			}
			fmt.Println("✅ Tabelas prontas: assets, sales, transactions")
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Verifica saúde do sistema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth(cmd.Context())
		},
	}
}

// checkHealth verifica a saúde do sistema
func checkHealth(ctx context.Context) error {
	fmt.Print("🏥 Verificando saúde do sistema...\n\n")

	healthy := true

	fmt.Print("PostgreSQL: ")
	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		healthy = false
		fmt.Printf("❌ Erro: %v\n", err)
	} else {
		defer db.Close()

		var result int
		if err := db.HealthCheck(ctx); err != nil {
			healthy = false
			fmt.Printf("❌ Erro no ping: %v\n", err)
		} else if err := db.Pool().QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
			healthy = false
			fmt.Printf("❌ Erro na query: %v\n", err)
		} else {
			stats := db.Stats()
			fmt.Printf("✅ OK (%d conexões, %d ociosas)\n", stats.TotalConns(), stats.IdleConns())
		}
	}

	fmt.Print("Redis: ")
	if cfg.RedisURL == "" {
		fmt.Println("➖ Desativado (REDIS_URL vazio)")
	} else if redisCache := connectRedis(ctx, cfg); redisCache == nil {
		healthy = false
		fmt.Println("❌ Não disponível")
	} else {
		defer redisCache.Close()

		if err := redisCache.HealthCheck(ctx); err != nil {
			healthy = false
			fmt.Printf("❌ Erro: %v\n", err)
		} else {
			fmt.Println("✅ OK")
		}
	}

	if !healthy {
		fmt.Println("\n❌ Verificação encontrou problemas")
		return errors.New("sistema com problemas")
	}
	fmt.Println("\n✅ Verificação concluída!")
	return nil
}
