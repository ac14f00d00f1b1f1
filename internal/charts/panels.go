package charts

import (
	"bytes"
	"errors"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"cofipei/internal/core"
)

var (
	hundred      = decimal.NewFromInt(100)
	rangeHeadway = decimal.RequireFromString("1.1")

	errNotFinite = errors.New("amount is not representable as a finite float")
)

// toFloat converts an amount for plotting. go-chart does not terminate on
// infinite values, so those are refused here.
func toFloat(d decimal.Decimal) (float64, error) {
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errNotFinite
	}
	return f, nil
}

// pie draws the expense slices labelled "<category> <pct>%".
func (g *GoChart) pie(totals core.CategoryTotals) ([]byte, error) {
	if totals.Len() == 0 {
		return g.placeholder(ExpensesTitle)
	}

	sum := totals.Total()
	if _, err := toFloat(sum); err != nil {
		return nil, err
	}
	values := make([]chart.Value, 0, totals.Len())
	for _, it := range totals.Items() {
		v, err := toFloat(it.Amount)
		if err != nil {
			return nil, err
		}
		values = append(values, chart.Value{
			Label: sliceLabel(it, sum),
			Value: v,
		})
	}

	pc := chart.PieChart{
		Title:  ExpensesTitle,
		Width:  g.width,
		Height: g.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		Values: values,
	}

	var buf bytes.Buffer
	if err := pc.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// bar draws one bar per income category with rotated x labels.
func (g *GoChart) bar(totals core.CategoryTotals) ([]byte, error) {
	if totals.Len() == 0 {
		return g.placeholder(IncomeTitle)
	}

	bars := make([]chart.Value, 0, totals.Len())
	top := decimal.Zero
	for _, it := range totals.Items() {
		v, err := toFloat(it.Amount)
		if err != nil {
			return nil, err
		}
		if it.Amount.GreaterThan(top) {
			top = it.Amount
		}
		bars = append(bars, chart.Value{Label: it.Name, Value: v})
	}
	rangeMax, err := toFloat(top.Mul(rangeHeadway))
	if err != nil {
		return nil, err
	}

	barWidth, spacing := g.barGeometry(len(bars))
	bc := chart.BarChart{
		Title:  IncomeTitle,
		Width:  g.width,
		Height: g.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 90},
		},
		BarWidth:   barWidth,
		BarSpacing: spacing,
		XAxis: chart.Style{
			TextRotationDegrees: 45,
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: rangeMax},
			ValueFormatter: amountFormatter,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// barGeometry shrinks bars so n of them fit the plot area.
func (g *GoChart) barGeometry(n int) (width, spacing int) {
	slot := (g.width - 120) / n
	width = slot * 2 / 3
	if width > 60 {
		width = 60
	}
	if width < 4 {
		width = 4
	}
	spacing = slot - width
	if spacing < 2 {
		spacing = 2
	}
	return width, spacing
}

// placeholder draws a titled blank panel for a category map with no entries.
func (g *GoChart) placeholder(title string) ([]byte, error) {
	r, err := chart.PNG(g.width, g.height)
	if err != nil {
		return nil, err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}

	r.SetFillColor(drawing.ColorWhite)
	r.SetStrokeColor(drawing.ColorWhite)
	r.MoveTo(0, 0)
	r.LineTo(g.width, 0)
	r.LineTo(g.width, g.height)
	r.LineTo(0, g.height)
	r.Close()
	r.FillStroke()

	r.SetFont(font)
	r.SetFontColor(drawing.ColorBlack)
	r.SetFontSize(14)
	tb := r.MeasureText(title)
	r.Text(title, (g.width-tb.Width())/2, 30)

	r.SetFontColor(drawing.ColorFromHex("999999"))
	r.SetFontSize(12)
	msg := "No data"
	mb := r.MeasureText(msg)
	r.Text(msg, (g.width-mb.Width())/2, g.height/2)

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sliceLabel(it core.CategoryAmount, sum decimal.Decimal) string {
	if sum.IsZero() {
		return it.Name
	}
	pct := it.Amount.Mul(hundred).Div(sum)
	return it.Name + " " + pct.StringFixed(1) + "%"
}

func amountFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return ""
}
