package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jeovahfialho/nft-ledger/internal/balance"
	"github.com/jeovahfialho/nft-ledger/internal/config"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func testConfig() *config.Config {
	return &config.Config{BatchSize: 2, Workers: 2, StartingBalance: "1000", Currency: "USD", ChartWidth: 900, ChartHeight: 320}
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	a := writeCSV(t, dir, "a.csv", "")
	b := writeCSV(t, dir, "b.csv", "")
	missing := filepath.Join(dir, "missing.csv")

	got, err := expandPaths([]string{filepath.Join(dir, "*.csv"), a, missing})
	if err != nil {
		t.Fatalf("expandPaths() error = %v", err)
	}
	if diff := cmp.Diff([]string{a, b, missing}, got); diff != "" {
		t.Errorf("expandPaths() mismatch (-want +got):\n%s", diff)
	}

	if _, err := expandPaths([]string{"[bad"}); err == nil {
		t.Error("expandPaths() expected error for malformed pattern")
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "100.50", want: "100.5"},
		{in: "100,50", want: "100.5"},
		{in: " 7 ", want: "7"},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDecimal(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDecimal(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDecimal(%q) error = %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("parseDecimal(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestDateRangeFlags(t *testing.T) {
	newCmd := func(from, to string) *cobra.Command {
		cmd := &cobra.Command{}
		addDateRangeFlags(cmd)
		cmd.Flags().Set("from", from)
		cmd.Flags().Set("to", to)
		return cmd
	}

	from, to, err := dateRangeFlags(newCmd("2023-01-01", "2023-01-31"))
	if err != nil {
		t.Fatalf("dateRangeFlags() error = %v", err)
	}
	if from.Format(domain.DateFormat) != "2023-01-01" || to.Format(domain.DateFormat) != "2023-01-31" {
		t.Errorf("range = %s..%s", from, to)
	}

	if _, _, err := dateRangeFlags(newCmd("2023-02-01", "2023-01-01")); err == nil {
		t.Error("dateRangeFlags() expected error for inverted range")
	}
	if _, _, err := dateRangeFlags(newCmd("01/02/2023", "")); err == nil {
		t.Error("dateRangeFlags() expected error for bad date")
	}

	from, to, err = dateRangeFlags(newCmd("", ""))
	if err != nil || from != nil || to != nil {
		t.Errorf("empty range = %v, %v, %v", from, to, err)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, s := range []string{"0", "-1", "x"} {
		if _, err := parseID(s); err == nil {
			t.Errorf("parseID(%q) expected error", s)
		}
	}
}

func TestBalanceFromFile(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	ctx := context.Background()

	sorted := writeCSV(t, dir, "sorted.csv",
		"date;type;price\n2023-01-20;Buy;100\n2023-01-25;Sell;300\n2023-01-26;Buy;150\n")
	points, err := balanceFromFile(ctx, sorted, decimal.NewFromInt(1000), false)
	if err != nil {
		t.Fatalf("balanceFromFile() error = %v", err)
	}
	var got []string
	for _, p := range points {
		got = append(got, p.Date.Format(domain.DateFormat)+"="+p.Balance.String())
	}
	if diff := cmp.Diff([]string{"2023-01-20=900", "2023-01-25=1200", "2023-01-26=1050"}, got); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}

	unsorted := writeCSV(t, dir, "unsorted.csv",
		"date;type;price\n2023-01-25;Sell;300\n2023-01-20;Buy;100\n")
	_, err = balanceFromFile(ctx, unsorted, decimal.NewFromInt(1000), false)
	if !errors.Is(err, balance.ErrPreconditionViolation) {
		t.Fatalf("unsorted error = %v, want ErrPreconditionViolation", err)
	}
	if !strings.Contains(explainBalanceError(err).Error(), "--sort") {
		t.Errorf("explainBalanceError() should suggest --sort")
	}

	points, err = balanceFromFile(ctx, unsorted, decimal.NewFromInt(1000), true)
	if err != nil {
		t.Fatalf("balanceFromFile(sort) error = %v", err)
	}
	if len(points) != 2 || !points[1].Balance.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("sorted points = %+v", points)
	}

	transfer := writeCSV(t, dir, "transfer.csv",
		"date;type;price\n2023-01-20;Buy;100\n2023-01-21;Transfer;40\n")
	_, err = balanceFromFile(ctx, transfer, decimal.NewFromInt(1000), false)
	if !errors.Is(err, balance.ErrInvalidTransactionType) {
		t.Fatalf("transfer error = %v, want ErrInvalidTransactionType", err)
	}
}

func TestWriteChart(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()
	points := []domain.BalancePoint{
		{Date: mustParse("2023-01-20"), Balance: decimal.NewFromInt(900)},
		{Date: mustParse("2023-01-25"), Balance: decimal.NewFromInt(1200)},
	}

	out := filepath.Join(dir, "saldo.svg")
	if err := writeChart(balanceOptions{svg: out, title: "Saldo"}, points, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("writeChart() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "<svg") {
		t.Errorf("output is not svg: %.40s", data)
	}

	empty := filepath.Join(dir, "vazio.svg")
	if err := writeChart(balanceOptions{svg: empty, from: "2024-01-01", to: "2024-02-01"}, points, decimal.Zero); err == nil {
		t.Fatal("writeChart() expected error with no points in range")
	}
	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Errorf("empty chart file should be removed, stat error = %v", err)
	}
}

func mustParse(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
