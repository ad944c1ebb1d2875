package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeovahfialho/nft-ledger/internal/balance"
	"github.com/jeovahfialho/nft-ledger/internal/chart"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/jeovahfialho/nft-ledger/internal/ingestion"
	"github.com/jeovahfialho/nft-ledger/internal/report"
	"github.com/jeovahfialho/nft-ledger/internal/service"
	"github.com/jeovahfialho/nft-ledger/pkg/logger"
	"github.com/jeovahfialho/nft-ledger/pkg/metrics"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [files...]",
		Short: "Importa transações de arquivos CSV",
		Long: `Importa arquivos CSV separados por ';' com cabeçalho date;type;price.
Aceita múltiplos arquivos e suporta wildcards (ex: data/*.csv).
Um arquivo com qualquer linha inválida é rejeitado por inteiro.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandPaths(args)
			if err != nil {
				return err
			}
			return importFiles(cmd, files)
		},
	}
}

func importFiles(cmd *cobra.Command, files []string) error {
	ctx := cmd.Context()

	a, err := connect(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers)
	loader := ingestion.NewBulkLoader(a.db.Pool(), cfg.BatchSize)

	workerPool := ingestion.NewWorkerPool(cfg.Workers, parser, loader)
	workerPool.Start(ctx)

	results := make(chan ingestion.JobResult, len(files))
	timer := metrics.NewTimer()

	fmt.Printf("📥 Importando %d arquivo(s)...\n\n", len(files))

	var failed int
	pending := 0
	for _, file := range files {
		if err := workerPool.Submit(ctx, ingestion.Job{FilePath: file, Result: results}); err != nil {
			failed++
			fmt.Printf("❌ Erro em %s: %v\n", file, err)
			continue
		}
		pending++
	}

	var totalRecords int64
collect:
	for ; pending > 0; pending-- {
		select {
		case <-ctx.Done():
			failed += pending
			fmt.Printf("⚠️  Importação interrompida: %d arquivo(s) sem resultado\n", pending)
			break collect
		case result := <-results:
			if result.Error != nil {
				failed++
				fmt.Printf("❌ Erro em %s: %v\n", result.FilePath, result.Error)
				continue
			}
			fmt.Printf("✅ %d transações de %s (lote %s)\n", result.RecordsCount, result.FilePath, result.Batch)
			totalRecords += result.RecordsCount
		}
	}
	workerPool.Stop()

	fmt.Printf("\n📊 Total: %d transações importadas em %s\n", totalRecords, timer.Elapsed().Round(time.Millisecond))

	if totalRecords > 0 {
		if err := a.reports.Invalidate(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("erro ao invalidar cache de saldo", zap.Error(err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d de %d arquivo(s) rejeitado(s)", failed, len(files))
	}
	return nil
}

// expandPaths resolves glob patterns, keeping literal paths that match nothing
// so the import reports them as missing.
func expandPaths(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("padrão inválido %q: %w", arg, err)
		}
		if len(matches) == 0 {
			matches = []string{arg}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

type balanceOptions struct {
	file     string
	format   string
	starting string
	sorted   bool
	rendered bool
	svg      string
	title    string
	from     string
	to       string
}

func newBalanceCmd() *cobra.Command {
	var opts balanceOptions

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Calcula o saldo acumulado por data",
		Long: `Calcula o saldo após cada data com transações, partindo do saldo inicial.
Compras (Buy) reduzem o saldo e vendas (Sell) aumentam.
Por padrão lê as transações do banco; com --file lê um CSV diretamente.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(cmd, opts)
		},
	}

	flags := balanceCmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "CSV de transações (não usa o banco)")
	flags.StringVarP(&opts.format, "format", "o", "table", "Formato: table, json, csv, yaml ou markdown")
	flags.StringVarP(&opts.starting, "starting", "s", "", "Saldo inicial, padrão: STARTING_BALANCE")
	flags.BoolVar(&opts.sorted, "sort", false, "Ordena o CSV por data antes de calcular")
	flags.BoolVar(&opts.rendered, "render", true, "Renderiza markdown no terminal")
	flags.StringVar(&opts.svg, "svg", "", "Grava o gráfico do saldo neste arquivo SVG")
	flags.StringVar(&opts.title, "title", "Saldo acumulado", "Título do gráfico")
	flags.StringVar(&opts.from, "from", "", "Início do eixo do gráfico (YYYY-MM-DD)")
	flags.StringVar(&opts.to, "to", "", "Fim do eixo do gráfico (YYYY-MM-DD)")

	return balanceCmd
}

func runBalance(cmd *cobra.Command, opts balanceOptions) error {
	ctx := cmd.Context()

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	starting, err := cfg.StartingBalanceDecimal()
	if err != nil {
		return err
	}
	if opts.starting != "" {
		if starting, err = parseDecimal(opts.starting); err != nil {
			return err
		}
	}

	var points []domain.BalancePoint
	if opts.file != "" {
		points, err = balanceFromFile(ctx, opts.file, starting, opts.sorted)
	} else {
		points, err = balanceFromDB(ctx, starting)
	}
	if err != nil {
		return explainBalanceError(err)
	}

	if err := report.Write(os.Stdout, format, points, report.Options{
		Currency: cfg.Currency,
		Starting: starting,
		Rendered: opts.rendered,
	}); err != nil {
		return err
	}

	if opts.svg != "" {
		if err := writeChart(opts, points, starting); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "📈 Gráfico salvo em %s\n", opts.svg)
	}

	logger.WithContext(ctx).Debug("saldo emitido",
		zap.Int("points", len(points)),
		zap.String("format", string(format)))
	return nil
}

func balanceFromDB(ctx context.Context, starting decimal.Decimal) ([]domain.BalancePoint, error) {
	a, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	return a.reports.Balances(ctx, starting)
}

func balanceFromFile(ctx context.Context, path string, starting decimal.Decimal, sorted bool) ([]domain.BalancePoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir arquivo: %w", err)
	}
	defer file.Close()

	result, err := ingestion.NewParser(cfg.BatchSize, cfg.Workers).ParseFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("erro no parse: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("%d linha(s) inválida(s) em %s: %w", len(result.Errors), path, errors.Join(result.Errors...))
	}

	transactions := result.Transactions
	if sorted {
		sort.SliceStable(transactions, func(i, j int) bool {
			return domain.DateOf(transactions[i].Date).Before(domain.DateOf(transactions[j].Date))
		})
	}
	return service.Compute(transactions, starting)
}

func writeChart(opts balanceOptions, points []domain.BalancePoint, starting decimal.Decimal) error {
	from, err := parseOptionalDate(opts.from)
	if err != nil {
		return err
	}
	to, err := parseOptionalDate(opts.to)
	if err != nil {
		return err
	}

	chartOpts := chart.Options{
		Width:    cfg.ChartWidth,
		Height:   cfg.ChartHeight,
		Title:    opts.title,
		Baseline: &starting,
	}
	if from != nil {
		chartOpts.From = *from
	}
	if to != nil {
		chartOpts.To = *to
	}

	f, err := os.Create(opts.svg)
	if err != nil {
		return fmt.Errorf("erro ao criar %s: %w", opts.svg, err)
	}
	if err := chart.RenderSVG(f, points, chartOpts); err != nil {
		f.Close()
		os.Remove(opts.svg)
		if errors.Is(err, chart.ErrNoData) {
			return fmt.Errorf("gráfico não gerado: %w", err)
		}
		return err
	}
	return f.Close()
}

// explainBalanceError adds a hint for the accumulator's input errors.
func explainBalanceError(err error) error {
	var precErr *balance.PreconditionError
	var typeErr *balance.InvalidTransactionTypeError
	switch {
	case errors.As(err, &precErr):
		return fmt.Errorf("%w\n💡 as transações precisam estar ordenadas por data (use --sort para CSV)", err)
	case errors.As(err, &typeErr):
		return fmt.Errorf("%w\n💡 tipos aceitos: %s e %s", err, domain.Buy, domain.Sell)
	default:
		return err
	}
}
