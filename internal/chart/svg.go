// Package chart renders balance series as standalone SVG line charts.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"time"

	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrNoData = errors.New("nenhum ponto de saldo para desenhar")

const (
	marginLeft   = 70
	marginRight  = 20
	marginTop    = 30
	marginBottom = 40
)

type Options struct {
	Width  int
	Height int
	Title  string
	// From and To bound the x axis; zero values use the first and last point.
	From time.Time
	To   time.Time
	// Baseline, when set, is drawn as a dashed horizontal line.
	Baseline *decimal.Decimal
}

// Point is a balance point in plot coordinates.
type Point struct {
	X, Y float64
}

type scale struct {
	from, to   time.Time
	minY, maxY float64
	w, h       float64
}

func (s scale) x(t time.Time) float64 {
	span := s.to.Sub(s.from).Hours()
	if span <= 0 {
		return s.w / 2
	}
	return t.Sub(s.from).Hours() / span * s.w
}

func (s scale) y(v float64) float64 {
	span := s.maxY - s.minY
	if span <= 0 {
		return s.h / 2
	}
	return s.h - (v-s.minY)/span*s.h
}

// project filters points to the x range in opts and maps them to plot
// coordinates. It returns ErrNoData when nothing falls inside the range.
func project(points []domain.BalancePoint, opts Options) ([]Point, scale, error) {
	opts = withDefaults(opts)

	from, to := opts.From, opts.To
	if len(points) > 0 {
		if from.IsZero() {
			from = points[0].Date
		}
		if to.IsZero() {
			to = points[len(points)-1].Date
		}
	}
	from, to = domain.DateOf(from), domain.DateOf(to)
	if to.Before(from) {
		return nil, scale{}, fmt.Errorf("intervalo inválido: %s > %s",
			from.Format(domain.DateFormat), to.Format(domain.DateFormat))
	}

	visible := make([]domain.BalancePoint, 0, len(points))
	for _, p := range points {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		visible = append(visible, p)
	}
	if len(visible) == 0 {
		return nil, scale{}, ErrNoData
	}

	s := scale{
		from: from,
		to:   to,
		minY: visible[0].Balance.InexactFloat64(),
		maxY: visible[0].Balance.InexactFloat64(),
		w:    float64(opts.Width - marginLeft - marginRight),
		h:    float64(opts.Height - marginTop - marginBottom),
	}
	for _, p := range visible {
		v := p.Balance.InexactFloat64()
		if v < s.minY {
			s.minY = v
		}
		if v > s.maxY {
			s.maxY = v
		}
	}
	if opts.Baseline != nil {
		b := opts.Baseline.InexactFloat64()
		if b < s.minY {
			s.minY = b
		}
		if b > s.maxY {
			s.maxY = b
		}
	}

	projected := make([]Point, 0, len(visible))
	for _, p := range visible {
		projected = append(projected, Point{X: s.x(p.Date), Y: s.y(p.Balance.InexactFloat64())})
	}
	return projected, s, nil
}

// RenderSVG writes a line chart of points to w.
func RenderSVG(w io.Writer, points []domain.BalancePoint, opts Options) error {
	opts = withDefaults(opts)

	projected, s, err := project(points, opts)
	if err != nil {
		return err
	}

	plotW, plotH := int(s.w), int(s.h)

	var b bytes.Buffer
	fmt.Fprintf(&b, "<svg xmlns='http://www.w3.org/2000/svg' width='%d' height='%d' viewBox='0 0 %d %d'>",
		opts.Width, opts.Height, opts.Width, opts.Height)
	b.WriteString("<rect width='100%' height='100%' fill='#0b0f17'/>")
	fmt.Fprintf(&b, "<g transform='translate(%d,%d)'>", marginLeft, marginTop)

	// eixos
	fmt.Fprintf(&b, "<line x1='0' y1='0' x2='0' y2='%d' stroke='#1f2837' />", plotH)
	fmt.Fprintf(&b, "<line x1='0' y1='%d' x2='%d' y2='%d' stroke='#1f2837' />", plotH, plotW, plotH)

	if opts.Baseline != nil {
		y := s.y(opts.Baseline.InexactFloat64())
		fmt.Fprintf(&b, "<line x1='0' y1='%.2f' x2='%d' y2='%.2f' stroke='#6e7681' stroke-dasharray='4 4' />",
			y, plotW, y)
	}

	b.WriteString("<polyline fill='none' stroke='#59a6ff' stroke-width='1.5' points='")
	for i, p := range projected {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.2f,%.2f", p.X, p.Y)
	}
	b.WriteString("'/>")

	for _, p := range projected {
		fmt.Fprintf(&b, "<circle cx='%.2f' cy='%.2f' r='2.5' fill='#59a6ff' />", p.X, p.Y)
	}

	// rótulos
	label := "<text x='%.2f' y='%.2f' fill='#8b949e' font-family='Inter' font-size='11' text-anchor='%s'>%s</text>"
	fmt.Fprintf(&b, label, -8.0, s.y(s.maxY)+4, "end", formatValue(s.maxY))
	fmt.Fprintf(&b, label, -8.0, s.y(s.minY)+4, "end", formatValue(s.minY))
	fmt.Fprintf(&b, label, 0.0, float64(plotH)+18, "start", s.from.Format(domain.DateFormat))
	fmt.Fprintf(&b, label, float64(plotW), float64(plotH)+18, "end", s.to.Format(domain.DateFormat))

	b.WriteString("</g>")
	fmt.Fprintf(&b, "<text x='16' y='20' fill='#e6edf3' font-family='Inter' font-size='14'>%s</text>",
		html.EscapeString(opts.Title))
	b.WriteString("</svg>")

	_, err = w.Write(b.Bytes())
	return err
}

func withDefaults(opts Options) Options {
	if opts.Width <= 0 {
		opts.Width = 900
	}
	if opts.Height <= 0 {
		opts.Height = 320
	}
	return opts
}

func formatValue(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
