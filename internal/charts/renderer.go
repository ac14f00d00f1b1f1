package charts

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"time"

	"golang.org/x/sync/semaphore"

	"cofipei/internal/core"
	"cofipei/internal/log"
)

const (
	ExpensesTitle = "Expenses by Category"
	IncomeTitle   = "Income by Category"
)

// Renderer draws the expense pie and income bar charts into one PNG.
type Renderer interface {
	Render(ctx context.Context, expenses, income core.CategoryTotals) ([]byte, error)
}

// RenderError reports a failure to produce one of the chart panels or the
// combined figure.
type RenderError struct {
	Chart string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s chart: %v", e.Chart, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Config holds renderer settings.
type Config struct {
	PanelWidth  int
	PanelHeight int
	// Concurrency bounds how many figures are drawn at once.
	Concurrency int
	Logger      *log.Logger
}

func DefaultConfig() Config {
	return Config{
		PanelWidth:  600,
		PanelHeight: 600,
		Concurrency: 1,
	}
}

// GoChart renders panels with go-chart and stitches them side by side.
type GoChart struct {
	width  int
	height int
	sem    *semaphore.Weighted
	logger *log.Logger
}

func NewGoChart(cfg Config) *GoChart {
	def := DefaultConfig()
	if cfg.PanelWidth <= 0 {
		cfg.PanelWidth = def.PanelWidth
	}
	if cfg.PanelHeight <= 0 {
		cfg.PanelHeight = def.PanelHeight
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewDefault()
	}
	return &GoChart{
		width:  cfg.PanelWidth,
		height: cfg.PanelHeight,
		sem:    semaphore.NewWeighted(int64(cfg.Concurrency)),
		logger: cfg.Logger.WithComponent(log.ComponentRender),
	}
}

// Size returns the dimensions of the combined figure.
func (g *GoChart) Size() (width, height int) {
	return 2 * g.width, g.height
}

func (g *GoChart) Render(ctx context.Context, expenses, income core.CategoryTotals) ([]byte, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, &RenderError{Chart: "figure", Err: err}
	}
	defer g.sem.Release(1)

	start := time.Now()

	left, err := g.pie(expenses)
	if err != nil {
		return nil, &RenderError{Chart: "expenses", Err: err}
	}
	right, err := g.bar(income)
	if err != nil {
		return nil, &RenderError{Chart: "income", Err: err}
	}

	out, err := g.compose(left, right)
	if err != nil {
		return nil, &RenderError{Chart: "figure", Err: err}
	}

	g.logger.DebugContext(ctx, "Chart figure rendered",
		log.FieldExpenseCategories, expenses.Len(),
		log.FieldIncomeCategories, income.Len(),
		log.FieldImageBytes, len(out),
		log.FieldDuration, time.Since(start).Milliseconds())
	return out, nil
}

// compose places two PNG panels next to each other on a white canvas.
func (g *GoChart) compose(left, right []byte) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, 2*g.width, g.height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	for i, panel := range [][]byte{left, right} {
		img, err := png.Decode(bytes.NewReader(panel))
		if err != nil {
			return nil, fmt.Errorf("decode panel %d: %w", i, err)
		}
		offset := image.Pt(i*g.width, 0)
		draw.Draw(canvas, img.Bounds().Add(offset), img, img.Bounds().Min, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode figure: %w", err)
	}
	return buf.Bytes(), nil
}
