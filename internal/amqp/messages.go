package amqp

import (
	"encoding/json"
	"time"

	"cofipei/internal/core"
)

// ChartGeneratedEvent announces a successfully generated chart. It carries
// the summary figures only, not the transactions or the image.
type ChartGeneratedEvent struct {
	ReportID          string    `json:"report_id"`
	RequestID         string    `json:"request_id,omitempty"`
	PeriodStart       string    `json:"period_start"`
	PeriodEnd         string    `json:"period_end"`
	TransactionCount  int       `json:"transaction_count"`
	ExpenseCategories int       `json:"expense_categories"`
	IncomeCategories  int       `json:"income_categories"`
	TotalExpenses     string    `json:"total_expenses"`
	TotalIncome       string    `json:"total_income"`
	ImageBytes        int       `json:"image_bytes"`
	CacheHit          bool      `json:"cache_hit"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewChartGeneratedEvent builds the event for rec.
func NewChartGeneratedEvent(rec core.ReportRecord) *ChartGeneratedEvent {
	ts := rec.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ChartGeneratedEvent{
		ReportID:          rec.ID,
		RequestID:         rec.RequestID,
		PeriodStart:       rec.Period.Start.String(),
		PeriodEnd:         rec.Period.End.String(),
		TransactionCount:  rec.TransactionCount,
		ExpenseCategories: rec.ExpenseCategories,
		IncomeCategories:  rec.IncomeCategories,
		TotalExpenses:     rec.TotalExpenses.String(),
		TotalIncome:       rec.TotalIncome.String(),
		ImageBytes:        rec.ImageBytes,
		CacheHit:          rec.CacheHit,
		Timestamp:         ts,
	}
}

func (e *ChartGeneratedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ChartGeneratedEventFromJSON(data []byte) (*ChartGeneratedEvent, error) {
	var e ChartGeneratedEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
