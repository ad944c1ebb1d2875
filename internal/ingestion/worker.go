package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/jeovahfialho/nft-ledger/internal/service"
	"github.com/jeovahfialho/nft-ledger/pkg/logger"
	"github.com/jeovahfialho/nft-ledger/pkg/metrics"
	"go.uber.org/zap"
)

// maxReportedErrors bounds the line errors joined into JobResult.Error.
const maxReportedErrors = 5

// Loader persists one file worth of transactions under an import batch id.
type Loader interface {
	LoadTransactions(ctx context.Context, batch uuid.UUID, txs []domain.Transaction) (int64, error)
}

type WorkerPool struct {
	workers  int
	parser   *Parser
	loader   Loader
	jobQueue chan Job
	wg       sync.WaitGroup
}

type Job struct {
	FilePath string
	Result   chan<- JobResult
}

type JobResult struct {
	FilePath     string
	Batch        uuid.UUID
	RecordsCount int64
	LineErrors   []error
	Error        error
}

func NewWorkerPool(workers int, parser *Parser, loader Loader) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers:  workers,
		parser:   parser,
		loader:   loader,
		jobQueue: make(chan Job, workers*2),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
}

// Submit queues job, giving up with ctx.Err() once ctx is cancelled.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.jobQueue <- job:
		return nil
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			wp.drain(ctx.Err())
			return

		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			if err := ctx.Err(); err != nil {
				job.Result <- JobResult{FilePath: job.FilePath, Error: err}
				continue
			}

			result := wp.processFile(ctx, job.FilePath)
			logger.Debug("arquivo processado",
				zap.Int("worker", id),
				zap.String("file", job.FilePath),
				zap.Int64("records", result.RecordsCount))
			job.Result <- result
		}
	}
}

// drain answers every job still queued, or submitted before Stop, with err.
func (wp *WorkerPool) drain(err error) {
	for job := range wp.jobQueue {
		job.Result <- JobResult{FilePath: job.FilePath, Error: err}
	}
}

// processFile rejects the whole file when any line is invalid.
func (wp *WorkerPool) processFile(ctx context.Context, filePath string) JobResult {
	result := JobResult{FilePath: filePath, Batch: uuid.New()}

	file, err := os.Open(filePath)
	if err != nil {
		result.Error = fmt.Errorf("erro ao abrir arquivo: %w", err)
		return result
	}
	defer file.Close()

	timer := metrics.NewTimer()
	parseResult, err := wp.parser.ParseFile(ctx, file)
	timer.ObserveDuration(metrics.ImportDuration.WithLabelValues("parse"))
	if err != nil {
		result.Error = fmt.Errorf("erro no parse: %w", err)
		return result
	}

	result.LineErrors = append(result.LineErrors, parseResult.Errors...)
	result.LineErrors = append(result.LineErrors, validate(parseResult.Transactions)...)

	if len(result.LineErrors) > 0 {
		metrics.RecordTransactionImported("rejected", len(parseResult.Transactions))
		result.Error = fmt.Errorf("%d linha(s) inválida(s): %w",
			len(result.LineErrors), errors.Join(firstN(result.LineErrors, maxReportedErrors)...))
		return result
	}

	timer = metrics.NewTimer()
	count, err := wp.loader.LoadTransactions(ctx, result.Batch, parseResult.Transactions)
	timer.ObserveDuration(metrics.ImportDuration.WithLabelValues("load"))
	if err != nil {
		metrics.RecordTransactionImported("error", len(parseResult.Transactions))
		result.Error = fmt.Errorf("erro ao carregar: %w", err)
		return result
	}

	metrics.RecordTransactionImported("success", int(count))
	logger.Info("arquivo importado",
		zap.String("file", filePath),
		zap.String("import_batch", result.Batch.String()),
		zap.Int64("records", count))

	result.RecordsCount = count
	return result
}

// validate checks parsed transactions against the rules the database enforces.
// Line numbers are not known at this point, so errors carry the record position.
func validate(txs []domain.Transaction) []error {
	var errs []error
	for i, tx := range txs {
		if err := service.ValidateTransaction(tx); err != nil {
			errs = append(errs, fmt.Errorf("registro %d: %w", i+1, err))
		}
	}
	return errs
}

func firstN(errs []error, n int) []error {
	if len(errs) > n {
		return errs[:n]
	}
	return errs
}
