package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/jeovahfialho/nft-ledger/internal/service"
	"github.com/jeovahfialho/nft-ledger/internal/storage/postgres"
	"github.com/shopspring/decimal"
)

func TestParseFilePreservesOrder(t *testing.T) {
	csvData := generateTestCSV(500)

	for _, workers := range []int{1, 4, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			parser := NewParser(7, workers)

			result, err := parser.ParseFile(context.Background(), strings.NewReader(csvData))
			if err != nil {
				t.Fatalf("ParseFile() error = %v", err)
			}
			if len(result.Errors) != 0 {
				t.Fatalf("ParseFile() errors = %v", result.Errors)
			}
			if len(result.Transactions) != 500 {
				t.Fatalf("len(Transactions) = %d, want 500", len(result.Transactions))
			}
			for i, tx := range result.Transactions {
				want := decimal.NewFromInt(int64(i))
				if !tx.Price.Equal(want) {
					t.Fatalf("Transactions[%d].Price = %s, want %s", i, tx.Price, want)
				}
			}
		})
	}
}

func TestParseFileFields(t *testing.T) {
	csvData := "Price;Date;Type\n" +
		"100,50;2023-01-20;buy\n" +
		" 300 ; 2023-01-25 ;Sell\n" +
		"\n" +
		"40;2023-01-26;Transfer\n"

	result, err := NewParser(10, 2).ParseFile(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("ParseFile() errors = %v", result.Errors)
	}

	want := []struct {
		price string
		date  string
		typ   domain.TransactionType
	}{
		{"100.50", "2023-01-20", domain.Buy},
		{"300", "2023-01-25", domain.Sell},
		{"40", "2023-01-26", "Transfer"},
	}
	if len(result.Transactions) != len(want) {
		t.Fatalf("len(Transactions) = %d, want %d", len(result.Transactions), len(want))
	}
	for i, w := range want {
		got := result.Transactions[i]
		if !got.Price.Equal(decimal.RequireFromString(w.price)) {
			t.Errorf("[%d] price = %s, want %s", i, got.Price, w.price)
		}
		if got.Date.Format(domain.DateFormat) != w.date {
			t.Errorf("[%d] date = %s, want %s", i, got.Date.Format(domain.DateFormat), w.date)
		}
		if got.Type != w.typ {
			t.Errorf("[%d] type = %q, want %q", i, got.Type, w.typ)
		}
	}
}

func TestParseFileLineErrors(t *testing.T) {
	csvData := "date;type;price\n" +
		"2023-01-20;Buy;10\n" +
		"20/01/2023;Buy;10\n" +
		"2023-01-21;Sell;abc\n" +
		"2023-01-22;Sell\n" +
		"2023-01-23;Buy;-5\n"

	result, err := NewParser(2, 3).ParseFile(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(result.Transactions) != 1 {
		t.Errorf("len(Transactions) = %d, want 1", len(result.Transactions))
	}

	wantLines := []int{3, 4, 5, 6}
	if len(result.Errors) != len(wantLines) {
		t.Fatalf("Errors = %v, want %d errors", result.Errors, len(wantLines))
	}
	for i, line := range wantLines {
		var lineErr *LineError
		if !errors.As(result.Errors[i], &lineErr) {
			t.Fatalf("Errors[%d] = %T, want *LineError", i, result.Errors[i])
		}
		if lineErr.Line != line {
			t.Errorf("Errors[%d].Line = %d, want %d", i, lineErr.Line, line)
		}
	}
}

func TestParseFileHeader(t *testing.T) {
	parser := NewParser(10, 1)

	result, err := parser.ParseFile(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseFile(empty) error = %v", err)
	}
	if len(result.Transactions) != 0 {
		t.Errorf("ParseFile(empty) returned transactions")
	}

	if _, err := parser.ParseFile(context.Background(), strings.NewReader("when;what\n")); err == nil {
		t.Errorf("ParseFile() with bad header error = nil")
	}
}

type fakeLoader struct {
	batches map[uuid.UUID][]domain.Transaction
	err     error
}

func (f *fakeLoader) LoadTransactions(ctx context.Context, batch uuid.UUID, txs []domain.Transaction) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.batches[batch] = txs
	return int64(len(txs)), nil
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return f.Name()
}

func TestWorkerPool(t *testing.T) {
	good := writeTemp(t, "date;type;price\n2023-01-20;Buy;100\n2023-01-25;Sell;300\n")
	badType := writeTemp(t, "date;type;price\n2023-01-20;Transfer;100\n")
	subCent := writeTemp(t, "date;type;price\n2023-01-20;Buy;0.105\n")
	missing := good + ".missing"

	// A single worker keeps the fake loader's map free of concurrent writes.
	loader := &fakeLoader{batches: map[uuid.UUID][]domain.Transaction{}}
	pool := NewWorkerPool(1, NewParser(10, 2), loader)

	ctx := context.Background()
	pool.Start(ctx)

	files := []string{good, badType, subCent, missing}
	results := make(chan JobResult, len(files))
	for _, f := range files {
		if err := pool.Submit(ctx, Job{FilePath: f, Result: results}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	byFile := map[string]JobResult{}
	for range files {
		r := <-results
		byFile[r.FilePath] = r
	}
	pool.Stop()

	if r := byFile[good]; r.Error != nil || r.RecordsCount != 2 {
		t.Errorf("good file = %d records, error %v", r.RecordsCount, r.Error)
	} else if len(loader.batches[r.Batch]) != 2 {
		t.Errorf("loader got %d transactions for batch %s", len(loader.batches[r.Batch]), r.Batch)
	}

	if r := byFile[badType]; r.Error == nil || len(r.LineErrors) != 1 {
		t.Errorf("file with Transfer = error %v, line errors %v", r.Error, r.LineErrors)
	}
	if r := byFile[subCent]; !errors.Is(r.Error, service.ErrInvalidRecord) {
		t.Errorf("file with sub-cent price error = %v, want ErrInvalidRecord", r.Error)
	}
	if r := byFile[missing]; r.Error == nil {
		t.Errorf("missing file error = nil")
	}
	if len(loader.batches) != 1 {
		t.Errorf("loader called for %d files, want 1", len(loader.batches))
	}
}

func TestWorkerPoolCancelled(t *testing.T) {
	good := writeTemp(t, "date;type;price\n2023-01-20;Buy;100\n")
	loader := &fakeLoader{batches: map[uuid.UUID][]domain.Transaction{}}
	pool := NewWorkerPool(1, NewParser(10, 1), loader)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	cancel()

	const jobs = 5
	results := make(chan JobResult, jobs)
	pending := 0
	for i := 0; i < jobs; i++ {
		err := pool.Submit(ctx, Job{FilePath: good, Result: results})
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("Submit() error = %v, want context.Canceled", err)
			}
			continue
		}
		pending++
	}

	timeout := time.After(2 * time.Second)
	for ; pending > 0; pending-- {
		select {
		case r := <-results:
			if !errors.Is(r.Error, context.Canceled) {
				t.Errorf("result error = %v, want context.Canceled", r.Error)
			}
		case <-timeout:
			t.Fatalf("%d job(s) never answered after cancel", pending)
		}
	}

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked after cancel")
	}

	if len(loader.batches) != 0 {
		t.Errorf("loader called %d time(s) after cancel", len(loader.batches))
	}
}

func TestSplitIntoChunks(t *testing.T) {
	txs := make([]domain.Transaction, 10)

	chunks := splitIntoChunks(txs, 4)
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if len(chunks[2]) != 2 {
		t.Errorf("last chunk = %d, want 2", len(chunks[2]))
	}
}

func BenchmarkParser(b *testing.B) {

	csvData := generateTestCSV(100000)

	benchmarks := []struct {
		name      string
		batchSize int
		workers   int
	}{
		{"SingleWorker", 1000, 1},
		{"FourWorkers", 1000, 4},
		{"EightWorkers", 1000, 8},
		{"LargeBatch", 10000, 4},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			parser := NewParser(bm.batchSize, bm.workers)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				reader := bytes.NewReader([]byte(csvData))
				ctx := context.Background()

				_, err := parser.ParseFile(ctx, reader)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBulkLoader(b *testing.B) {

	pool := setupTestDB(b)

	txs := generateTestTransactions(10000)

	benchmarks := []struct {
		name      string
		batchSize int
	}{
		{"SmallBatch", 100},
		{"MediumBatch", 1000},
		{"LargeBatch", 10000},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			loader := NewBulkLoader(pool, bm.batchSize)
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_, err := loader.LoadTransactions(ctx, uuid.New(), txs)
				if err != nil {
					b.Fatal(err)
				}

				pool.Exec(ctx, "TRUNCATE transactions")
			}
		})
	}
}

func setupTestDB(tb testing.TB) *pgxpool.Pool {
	tb.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		tb.Skip("TEST_DATABASE_URL não definido")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		tb.Fatalf("pgxpool.New() error = %v", err)
	}
	tb.Cleanup(pool.Close)

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		tb.Fatalf("EnsureSchema() error = %v", err)
	}
	return pool
}

// generateTestCSV writes lines whose price equals the line index.
func generateTestCSV(lines int) string {
	var sb strings.Builder
	sb.WriteString("date;type;price\n")

	types := []string{"Buy", "Sell"}

	for i := 0; i < lines; i++ {
		sb.WriteString(fmt.Sprintf(
			"2024-01-%02d;%s;%d\n",
			1+i%28, types[i%len(types)], i,
		))
	}

	return sb.String()
}

func generateTestTransactions(n int) []domain.Transaction {
	txs := make([]domain.Transaction, n)
	for i := range txs {
		typ := domain.Buy
		if i%2 == 1 {
			typ = domain.Sell
		}
		date, _ := domain.ParseDate(fmt.Sprintf("2024-01-%02d", 1+i%28))
		txs[i] = domain.Transaction{Price: decimal.New(int64(i), -2), Date: date, Type: typ}
	}
	return txs
}
