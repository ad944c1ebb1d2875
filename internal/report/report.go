// Package report formats balance series for the terminal and for export.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatYAML, FormatMarkdown}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("formato desconhecido %q (use table, json, csv, yaml ou markdown)", s)
}

type Options struct {
	Currency string
	Starting decimal.Decimal
	// Rendered passes markdown output through glamour.
	Rendered bool
	// Style is the glamour style name, "dark" when empty.
	Style string
}

// Row is one serialised balance point.
type Row struct {
	Date    string `json:"date" yaml:"date"`
	Balance string `json:"balance" yaml:"balance"`
	Change  string `json:"change" yaml:"change"`
}

type document struct {
	Currency string `json:"currency" yaml:"currency"`
	Starting string `json:"starting_balance" yaml:"starting_balance"`
	Points   []Row  `json:"points" yaml:"points"`
}

// Rows converts points into rows, Change being the delta from the previous
// point (or from the starting balance for the first one).
func Rows(points []domain.BalancePoint, starting decimal.Decimal) []Row {
	rows := make([]Row, 0, len(points))
	prev := starting
	for _, p := range points {
		rows = append(rows, Row{
			Date:    p.Date.Format(domain.DateFormat),
			Balance: p.Balance.String(),
			Change:  p.Balance.Sub(prev).String(),
		})
		prev = p.Balance
	}
	return rows
}

func Write(w io.Writer, format Format, points []domain.BalancePoint, opts Options) error {
	switch format {
	case FormatTable, "":
		return writeTable(w, points, opts)
	case FormatJSON:
		return writeJSON(w, points, opts)
	case FormatCSV:
		return writeCSV(w, points, opts)
	case FormatYAML:
		return writeYAML(w, points, opts)
	case FormatMarkdown:
		return writeMarkdown(w, points, opts)
	default:
		return fmt.Errorf("formato desconhecido %q", format)
	}
}

func writeTable(w io.Writer, points []domain.BalancePoint, opts Options) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATA\tSALDO\tVARIAÇÃO\t")
	fmt.Fprintf(tw, "inicial\t%s\t\t\n", FormatMoney(opts.Starting, opts.Currency))

	prev := opts.Starting
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n",
			p.Date.Format(domain.DateFormat),
			FormatMoney(p.Balance, opts.Currency),
			signed(p.Balance.Sub(prev), opts.Currency))
		prev = p.Balance
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, points []domain.BalancePoint, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(newDocument(points, opts)); err != nil {
		return fmt.Errorf("erro ao gerar json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, points []domain.BalancePoint, opts Options) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(points, opts)); err != nil {
		return fmt.Errorf("erro ao gerar yaml: %w", err)
	}
	return enc.Close()
}

func writeCSV(w io.Writer, points []domain.BalancePoint, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "balance", "change"}); err != nil {
		return err
	}
	for _, r := range Rows(points, opts.Starting) {
		if err := cw.Write([]string{r.Date, r.Balance, r.Change}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeMarkdown(w io.Writer, points []domain.BalancePoint, opts Options) error {
	md := Markdown(points, opts)
	if opts.Rendered {
		style := opts.Style
		if style == "" {
			style = "dark"
		}
		out, err := glamour.Render(md, style)
		if err != nil {
			return fmt.Errorf("erro ao renderizar markdown: %w", err)
		}
		md = out
	}
	_, err := io.WriteString(w, md)
	return err
}

// Markdown builds the report as a markdown document.
func Markdown(points []domain.BalancePoint, opts Options) string {
	var b strings.Builder
	b.WriteString("# Saldo acumulado\n\n")
	fmt.Fprintf(&b, "Saldo inicial: **%s**\n\n", FormatMoney(opts.Starting, opts.Currency))

	if len(points) == 0 {
		b.WriteString("_Nenhuma transação registrada._\n")
		return b.String()
	}

	b.WriteString("| Data | Saldo | Variação |\n")
	b.WriteString("|---|---:|---:|\n")
	prev := opts.Starting
	for _, p := range points {
		fmt.Fprintf(&b, "| %s | %s | %s |\n",
			p.Date.Format(domain.DateFormat),
			FormatMoney(p.Balance, opts.Currency),
			signed(p.Balance.Sub(prev), opts.Currency))
		prev = p.Balance
	}

	last := points[len(points)-1].Balance
	fmt.Fprintf(&b, "\nSaldo final: **%s** (%s)\n",
		FormatMoney(last, opts.Currency), signed(last.Sub(opts.Starting), opts.Currency))
	return b.String()
}

func newDocument(points []domain.BalancePoint, opts Options) document {
	return document{
		Currency: opts.Currency,
		Starting: opts.Starting.String(),
		Points:   Rows(points, opts.Starting),
	}
}

// FormatMoney renders amount in the currency's display format. Unknown
// currency codes fall back to the plain decimal followed by the code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return strings.TrimSpace(amount.StringFixed(2) + " " + currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

func signed(amount decimal.Decimal, currency string) string {
	if amount.IsPositive() {
		return "+" + FormatMoney(amount, currency)
	}
	return FormatMoney(amount, currency)
}
