package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ReportRecord describes one successful chart generation. It carries
// counts and totals only, never the transactions themselves.
type ReportRecord struct {
	ID                string
	RequestID         string
	Period            DateRange
	TransactionCount  int
	ExpenseCategories int
	IncomeCategories  int
	TotalExpenses     decimal.Decimal
	TotalIncome       decimal.Decimal
	ImageBytes        int
	CacheHit          bool
	CreatedAt         time.Time
}

// NewReportRecord fills the summary derived fields of a record.
func NewReportRecord(id, requestID string, period DateRange, s Summary, imageBytes int, cacheHit bool, now time.Time) ReportRecord {
	return ReportRecord{
		ID:                id,
		RequestID:         requestID,
		Period:            period,
		TransactionCount:  s.TransactionCount,
		ExpenseCategories: s.Expenses.Len(),
		IncomeCategories:  s.Income.Len(),
		TotalExpenses:     s.TotalExpenses,
		TotalIncome:       s.TotalIncome,
		ImageBytes:        imageBytes,
		CacheHit:          cacheHit,
		CreatedAt:         now.UTC(),
	}
}

// ReportView is the JSON form of a ReportRecord.
type ReportView struct {
	ID                string      `json:"id"`
	RequestID         string      `json:"request_id,omitempty"`
	Period            PeriodView  `json:"period"`
	TransactionCount  int         `json:"transaction_count"`
	ExpenseCategories int         `json:"expense_categories"`
	IncomeCategories  int         `json:"income_categories"`
	TotalExpenses     json.Number `json:"total_expenses"`
	TotalIncome       json.Number `json:"total_income"`
	ImageBytes        int         `json:"image_bytes"`
	CacheHit          bool        `json:"cache_hit"`
	CreatedAt         time.Time   `json:"created_at"`
}

func (r ReportRecord) View() ReportView {
	return ReportView{
		ID:        r.ID,
		RequestID: r.RequestID,
		Period: PeriodView{
			StartDate: r.Period.Start.String(),
			EndDate:   r.Period.End.String(),
		},
		TransactionCount:  r.TransactionCount,
		ExpenseCategories: r.ExpenseCategories,
		IncomeCategories:  r.IncomeCategories,
		TotalExpenses:     json.Number(r.TotalExpenses.String()),
		TotalIncome:       json.Number(r.TotalIncome.String()),
		ImageBytes:        r.ImageBytes,
		CacheHit:          r.CacheHit,
		CreatedAt:         r.CreatedAt,
	}
}
