package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Header columns, matched case-insensitively.
const (
	columnDate  = "date"
	columnType  = "type"
	columnPrice = "price"
)

type Parser struct {
	batchSize int
	workers   int
}

func NewParser(batchSize, workers int) *Parser {
	if batchSize < 1 {
		batchSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Parser{
		batchSize: batchSize,
		workers:   workers,
	}
}

// LineError is a problem with a single CSV line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("linha %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ParseResult holds transactions in file order.
type ParseResult struct {
	Transactions []domain.Transaction
	Errors       []error
}

type rawRecord struct {
	line   int
	fields []string
}

type parsedRecord struct {
	line int
	tx   domain.Transaction
}

type batch struct {
	records []parsedRecord
	errors  []error
}

type columns struct {
	date, typ, price int
}

func (c columns) width() int {
	return max(c.date, c.typ, c.price) + 1
}

// ParseFile reads a ';'-separated file with a date;type;price header.
// Records are parsed by several workers and put back in file order.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = ';'
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return &ParseResult{Transactions: []domain.Transaction{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao ler cabeçalho: %w", err)
	}

	cols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	jobs := make(chan rawRecord, p.workers*2)
	results := make(chan *batch, p.workers)
	readErrs := make([]error, 0)

	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, cols, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)

		for {
			record, err := csvReader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var parseErr *csv.ParseError
				if !errors.As(err, &parseErr) {
					readErrs = append(readErrs, fmt.Errorf("erro de leitura: %w", err))
					return
				}
				readErrs = append(readErrs, &LineError{Line: parseErr.Line, Err: err})
				continue
			}
			line, _ := csvReader.FieldPos(0)
			if isBlank(record) {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case jobs <- rawRecord{line: line, fields: record}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var parsed []parsedRecord
	var errs []error

	for result := range results {
		parsed = append(parsed, result.records...)
		errs = append(errs, result.errors...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// readErrs is only written by the reader goroutine, which has exited once
	// results is closed.
	errs = append(errs, readErrs...)

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].line < parsed[j].line })
	sort.SliceStable(errs, func(i, j int) bool { return lineOf(errs[i]) < lineOf(errs[j]) })

	finalResult := &ParseResult{
		Transactions: make([]domain.Transaction, 0, len(parsed)),
		Errors:       errs,
	}
	for _, r := range parsed {
		finalResult.Transactions = append(finalResult.Transactions, r.tx)
	}

	return finalResult, nil
}

func (p *Parser) worker(ctx context.Context, cols columns, jobs <-chan rawRecord,
	results chan<- *batch, wg *sync.WaitGroup) {

	defer wg.Done()

	current := &batch{records: make([]parsedRecord, 0, p.batchSize)}

	flush := func() {
		if len(current.records) > 0 || len(current.errors) > 0 {
			results <- current
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case record, ok := <-jobs:
			if !ok {
				flush()
				return
			}

			tx, err := parseRecord(cols, record.fields)
			if err != nil {
				current.errors = append(current.errors, &LineError{Line: record.line, Err: err})
				continue
			}

			current.records = append(current.records, parsedRecord{line: record.line, tx: *tx})

			if len(current.records) >= p.batchSize {
				results <- current
				current = &batch{records: make([]parsedRecord, 0, p.batchSize)}
			}
		}
	}
}

func parseHeader(header []string) (columns, error) {
	cols := columns{date: -1, typ: -1, price: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case columnDate:
			cols.date = i
		case columnType:
			cols.typ = i
		case columnPrice:
			cols.price = i
		}
	}
	if cols.date < 0 || cols.typ < 0 || cols.price < 0 {
		return cols, fmt.Errorf("cabeçalho inválido %v: colunas esperadas %s;%s;%s",
			header, columnDate, columnType, columnPrice)
	}
	return cols, nil
}

func parseRecord(cols columns, record []string) (*domain.Transaction, error) {
	if len(record) < cols.width() {
		return nil, fmt.Errorf("registro inválido: %v", record)
	}

	date, err := domain.ParseDate(record[cols.date])
	if err != nil {
		return nil, fmt.Errorf("data inválida: %w", err)
	}

	precoStr := strings.Replace(strings.TrimSpace(record[cols.price]), ",", ".", -1)
	price, err := decimal.NewFromString(precoStr)
	if err != nil {
		return nil, fmt.Errorf("preço inválido: %w", err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("preço negativo: %s", price)
	}

	return &domain.Transaction{
		Price: price,
		Date:  date,
		Type:  domain.ParseTransactionType(record[cols.typ]),
	}, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func lineOf(err error) int {
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		return lineErr.Line
	}
	return 0
}
