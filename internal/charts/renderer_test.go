package charts

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cofipei/internal/core"
)

func totals(pairs ...any) core.CategoryTotals {
	var c core.CategoryTotals
	for i := 0; i < len(pairs); i += 2 {
		c.Add(pairs[i].(string), decimal.NewFromInt(int64(pairs[i+1].(int))))
	}
	return c
}

func newTestRenderer() *GoChart {
	return NewGoChart(Config{PanelWidth: 400, PanelHeight: 300, Concurrency: 1})
}

func TestGoChart_RenderProducesSideBySidePNG(t *testing.T) {
	r := newTestRenderer()

	out, err := r.Render(context.Background(),
		totals("Rent", 1000, "Food", 200),
		totals("Salary", 3000))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	w, h := r.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, w, img.Bounds().Dx())
	assert.Equal(t, h, img.Bounds().Dy())
}

func TestGoChart_RenderEmptyMaps(t *testing.T) {
	r := newTestRenderer()

	tests := []struct {
		name     string
		expenses core.CategoryTotals
		income   core.CategoryTotals
	}{
		{"both empty", core.CategoryTotals{}, core.CategoryTotals{}},
		{"no expenses", core.CategoryTotals{}, totals("Salary", 3000)},
		{"no income", totals("Rent", 1000), core.CategoryTotals{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(context.Background(), tt.expenses, tt.income)
			require.NoError(t, err)
			_, err = png.Decode(bytes.NewReader(out))
			assert.NoError(t, err)
		})
	}
}

func TestGoChart_ManyIncomeCategories(t *testing.T) {
	r := newTestRenderer()

	var income core.CategoryTotals
	for i := 0; i < 40; i++ {
		income.Add(string(rune('A'+i%26))+"-category", decimal.NewFromInt(int64(i+1)))
	}

	out, err := r.Render(context.Background(), totals("Rent", 1), income)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestGoChart_RenderCancelledWhileWaiting(t *testing.T) {
	r := newTestRenderer()
	require.NoError(t, r.sem.Acquire(context.Background(), 1))
	defer r.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, core.CategoryTotals{}, core.CategoryTotals{})
	require.Error(t, err)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "figure", renderErr.Chart)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGoChart_RenderRefusesUnplottableAmounts(t *testing.T) {
	huge := func(name, v string) core.CategoryTotals {
		var c core.CategoryTotals
		c.Add(name, decimal.RequireFromString(v))
		return c
	}

	tests := []struct {
		name      string
		expenses  core.CategoryTotals
		income    core.CategoryTotals
		wantChart string
	}{
		{"infinite expense", huge("Rent", "1e400"), core.CategoryTotals{}, "expenses"},
		{"infinite income", core.CategoryTotals{}, huge("Salary", "1e400"), "income"},
		{"income range overflows", core.CategoryTotals{}, huge("Salary", "1.7e308"), "income"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer()

			done := make(chan error, 1)
			go func() {
				_, err := r.Render(context.Background(), tt.expenses, tt.income)
				done <- err
			}()

			var err error
			select {
			case err = <-done:
			case <-time.After(10 * time.Second):
				t.Fatal("Render did not return")
			}

			var renderErr *RenderError
			require.True(t, errors.As(err, &renderErr), "got %v", err)
			assert.Equal(t, tt.wantChart, renderErr.Chart)
			assert.ErrorIs(t, err, errNotFinite)

			// The slot is released for the next request.
			_, err = r.Render(context.Background(), totals("Rent", 10), totals("Salary", 10))
			assert.NoError(t, err)
		})
	}
}

func TestSliceLabel(t *testing.T) {
	sum := decimal.NewFromInt(1200)
	assert.Equal(t, "Rent 83.3%", sliceLabel(core.CategoryAmount{Name: "Rent", Amount: decimal.NewFromInt(1000)}, sum))
	assert.Equal(t, "Food 16.7%", sliceLabel(core.CategoryAmount{Name: "Food", Amount: decimal.NewFromInt(200)}, sum))
}

func TestBarGeometry(t *testing.T) {
	r := newTestRenderer()

	w, s := r.barGeometry(1)
	assert.Equal(t, 60, w)
	assert.Positive(t, s)

	w, s = r.barGeometry(200)
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, s)
}

func TestRenderError(t *testing.T) {
	base := errors.New("boom")
	err := &RenderError{Chart: "income", Err: base}
	assert.Equal(t, "render income chart: boom", err.Error())
	assert.ErrorIs(t, err, base)
}
