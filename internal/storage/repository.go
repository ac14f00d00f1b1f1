package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"cofipei/internal/core"
	"cofipei/internal/log"
)

// DefaultListLimit and MaxListLimit bound ListRecent.
const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

var ErrClosed = errors.New("report repository closed")

// ReportRepository stores one row per generated chart in SQLite.
type ReportRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

// NewReportRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewReportRepository(dbPath string, logger *log.Logger) (*ReportRepository, error) {
	if logger == nil {
		logger = log.NewDefault()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &ReportRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *ReportRepository) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *ReportRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return ErrClosed
	}
	return r.db.PingContext(ctx)
}

// Record inserts rec.
func (r *ReportRepository) Record(ctx context.Context, rec core.ReportRecord) error {
	if r.db == nil {
		return ErrClosed
	}
	err := r.queries.InsertChartReport(ctx, ChartReport{
		ID:                rec.ID,
		RequestID:         rec.RequestID,
		PeriodStart:       rec.Period.Start.String(),
		PeriodEnd:         rec.Period.End.String(),
		TransactionCount:  int64(rec.TransactionCount),
		ExpenseCategories: int64(rec.ExpenseCategories),
		IncomeCategories:  int64(rec.IncomeCategories),
		TotalExpenses:     rec.TotalExpenses.String(),
		TotalIncome:       rec.TotalIncome.String(),
		ImageBytes:        int64(rec.ImageBytes),
		CacheHit:          rec.CacheHit,
		CreatedAt:         rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert chart report: %w", err)
	}

	r.logger.DebugContext(ctx, "Chart report saved",
		log.FieldReportID, rec.ID,
		log.FieldTransactions, rec.TransactionCount)
	return nil
}

// ListRecent returns up to limit reports, newest first. Non-positive limits
// fall back to DefaultListLimit and large ones are capped at MaxListLimit.
func (r *ReportRepository) ListRecent(ctx context.Context, limit int) ([]core.ReportRecord, error) {
	if r.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := r.queries.ListRecentChartReports(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list chart reports: %w", err)
	}

	records := make([]core.ReportRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, fmt.Errorf("decode chart report %s: %w", row.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *ReportRepository) Count(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, ErrClosed
	}
	return r.queries.CountChartReports(ctx)
}

func toRecord(row ChartReport) (core.ReportRecord, error) {
	start, err := core.ParseDate(row.PeriodStart)
	if err != nil {
		return core.ReportRecord{}, err
	}
	end, err := core.ParseDate(row.PeriodEnd)
	if err != nil {
		return core.ReportRecord{}, err
	}
	expenses, err := decimal.NewFromString(row.TotalExpenses)
	if err != nil {
		return core.ReportRecord{}, err
	}
	income, err := decimal.NewFromString(row.TotalIncome)
	if err != nil {
		return core.ReportRecord{}, err
	}

	return core.ReportRecord{
		ID:                row.ID,
		RequestID:         row.RequestID,
		Period:            core.DateRange{Start: start, End: end},
		TransactionCount:  int(row.TransactionCount),
		ExpenseCategories: int(row.ExpenseCategories),
		IncomeCategories:  int(row.IncomeCategories),
		TotalExpenses:     expenses,
		TotalIncome:       income,
		ImageBytes:        int(row.ImageBytes),
		CacheHit:          row.CacheHit,
		CreatedAt:         row.CreatedAt.UTC(),
	}, nil
}
