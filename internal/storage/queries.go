package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL for the chart_reports table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ChartReport mirrors a chart_reports row.
type ChartReport struct {
	ID                string
	RequestID         string
	PeriodStart       string
	PeriodEnd         string
	TransactionCount  int64
	ExpenseCategories int64
	IncomeCategories  int64
	TotalExpenses     string
	TotalIncome       string
	ImageBytes        int64
	CacheHit          bool
	CreatedAt         time.Time
}

const insertChartReport = `-- name: InsertChartReport :exec
INSERT INTO chart_reports (
    id, request_id, period_start, period_end, transaction_count,
    expense_categories, income_categories, total_expenses, total_income,
    image_bytes, cache_hit, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertChartReport(ctx context.Context, arg ChartReport) error {
	_, err := q.db.ExecContext(ctx, insertChartReport,
		arg.ID,
		arg.RequestID,
		arg.PeriodStart,
		arg.PeriodEnd,
		arg.TransactionCount,
		arg.ExpenseCategories,
		arg.IncomeCategories,
		arg.TotalExpenses,
		arg.TotalIncome,
		arg.ImageBytes,
		arg.CacheHit,
		arg.CreatedAt,
	)
	return err
}

const listRecentChartReports = `-- name: ListRecentChartReports :many
SELECT id, request_id, period_start, period_end, transaction_count,
       expense_categories, income_categories, total_expenses, total_income,
       image_bytes, cache_hit, created_at
FROM chart_reports
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRecentChartReports(ctx context.Context, limit int64) ([]ChartReport, error) {
	rows, err := q.db.QueryContext(ctx, listRecentChartReports, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ChartReport
	for rows.Next() {
		var i ChartReport
		if err := rows.Scan(
			&i.ID,
			&i.RequestID,
			&i.PeriodStart,
			&i.PeriodEnd,
			&i.TransactionCount,
			&i.ExpenseCategories,
			&i.IncomeCategories,
			&i.TotalExpenses,
			&i.TotalIncome,
			&i.ImageBytes,
			&i.CacheHit,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countChartReports = `-- name: CountChartReports :one
SELECT COUNT(*) FROM chart_reports
`

func (q *Queries) CountChartReports(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countChartReports)
	var count int64
	err := row.Scan(&count)
	return count, err
}
