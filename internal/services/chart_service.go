package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cofipei/internal/cache"
	"cofipei/internal/charts"
	"cofipei/internal/core"
	"cofipei/internal/log"
	"cofipei/internal/middleware/trace"
)

// ReportRecorder stores a record of each generated chart.
type ReportRecorder interface {
	Record(ctx context.Context, rec core.ReportRecord) error
}

// EventPublisher announces each generated chart.
type EventPublisher interface {
	PublishChartGenerated(ctx context.Context, rec core.ReportRecord) error
}

// Options configures a ChartService. Every field is optional.
type Options struct {
	StrictTypes bool
	Images      cache.Cache[[]byte]
	Reports     ReportRecorder
	Events      EventPublisher
	Logger      *log.Logger
	Now         func() time.Time
	NewID       func() string
}

// Metrics is a snapshot of ChartService counters.
type Metrics struct {
	ChartsGenerated    int64
	CacheHits          int64
	ValidationFailures int64
	RenderFailures     int64
	SideEffectFailures int64
}

// ChartService runs validate, aggregate, render and respond for one
// generate-chart request, then records and announces the result.
type ChartService struct {
	validator core.Validator
	renderer  charts.Renderer
	images    cache.Cache[[]byte]
	reports   ReportRecorder
	events    EventPublisher
	logger    *log.Logger
	structLog *log.StructuredLogger
	now       func() time.Time
	newID     func() string

	chartsGenerated    int64
	cacheHits          int64
	validationFailures int64
	renderFailures     int64
	sideEffectFailures int64
}

func NewChartService(renderer charts.Renderer, opts Options) *ChartService {
	if opts.Logger == nil {
		opts.Logger = log.NewDefault()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	logger := opts.Logger.WithComponent(log.ComponentChart)
	return &ChartService{
		validator: core.Validator{StrictTypes: opts.StrictTypes},
		renderer:  renderer,
		images:    opts.Images,
		reports:   opts.Reports,
		events:    opts.Events,
		logger:    logger,
		structLog: log.NewStructuredLogger(logger),
		now:       opts.Now,
		newID:     opts.NewID,
	}
}

// Generate validates payload and produces the chart response. Failures are
// a *core.ValidationError, a *charts.RenderError, or an internal error;
// there is no partial response.
func (s *ChartService) Generate(ctx context.Context, payload core.ChartPayload) (core.ChartResponse, error) {
	req, err := s.validator.Validate(payload)
	if err != nil {
		atomic.AddInt64(&s.validationFailures, 1)
		s.logger.WarnContext(ctx, "Chart request rejected",
			log.NewFields().
				WithOperation(log.OpValidate).
				WithErrorType(log.ErrorTypeValidation).
				WithError(err).
				ToSlice()...)
		return core.ChartResponse{}, err
	}

	summary := core.Aggregate(req.Transactions)

	png, cacheHit, err := s.render(ctx, summary)
	if err != nil {
		atomic.AddInt64(&s.renderFailures, 1)
		s.structLog.LogError(ctx, "Chart rendering failed", err, log.ComponentRender, log.OpRender,
			log.NewFields().WithErrorType(log.ErrorTypeRendering))
		return core.ChartResponse{}, err
	}

	resp := core.NewChartResponse(req.Period, summary, png)
	atomic.AddInt64(&s.chartsGenerated, 1)

	rec := core.NewReportRecord(s.newID(), trace.GetRequestID(ctx), req.Period, summary, len(png), cacheHit, s.now())
	s.afterGenerate(ctx, rec)

	s.structLog.LogChartGenerated(ctx, log.NewFields().
		WithPeriod(resp.Period.StartDate, resp.Period.EndDate).
		WithChart(summary.TransactionCount, summary.TotalExpenses.String(), summary.TotalIncome.String(),
			summary.Expenses.Len(), summary.Income.Len()).
		With(log.FieldImageBytes, len(png)).
		With(log.FieldCacheHit, cacheHit).
		With(log.FieldReportID, rec.ID))

	return resp, nil
}

func (s *ChartService) render(ctx context.Context, summary core.Summary) ([]byte, bool, error) {
	key := summary.Fingerprint()
	if s.images != nil {
		if png, ok := s.images.Get(key); ok {
			atomic.AddInt64(&s.cacheHits, 1)
			return png, true, nil
		}
	}

	png, err := s.renderer.Render(ctx, summary.Expenses, summary.Income)
	if err != nil {
		var renderErr *charts.RenderError
		if !errors.As(err, &renderErr) {
			err = &charts.RenderError{Chart: "figure", Err: err}
		}
		return nil, false, err
	}

	if s.images != nil {
		s.images.Set(key, png)
	}
	return png, false, nil
}

// afterGenerate records and publishes rec. Failures are logged and counted
// but never reach the caller.
func (s *ChartService) afterGenerate(ctx context.Context, rec core.ReportRecord) {
	if s.reports != nil {
		if err := s.reports.Record(ctx, rec); err != nil {
			atomic.AddInt64(&s.sideEffectFailures, 1)
			s.structLog.LogError(ctx, "Failed to record chart report", err, log.ComponentStorage, log.OpRecord,
				log.NewFields().WithErrorType(log.ErrorTypeDatabase).With(log.FieldReportID, rec.ID))
		}
	}

	if s.events != nil {
		if err := s.events.PublishChartGenerated(ctx, rec); err != nil {
			atomic.AddInt64(&s.sideEffectFailures, 1)
			s.structLog.LogError(ctx, "Failed to publish chart event", err, log.ComponentAMQP, log.OpPublish,
				log.NewFields().WithErrorType(log.ErrorTypeNetwork).With(log.FieldReportID, rec.ID))
		}
	}
}

// Metrics returns the current counters.
func (s *ChartService) Metrics() Metrics {
	return Metrics{
		ChartsGenerated:    atomic.LoadInt64(&s.chartsGenerated),
		CacheHits:          atomic.LoadInt64(&s.cacheHits),
		ValidationFailures: atomic.LoadInt64(&s.validationFailures),
		RenderFailures:     atomic.LoadInt64(&s.renderFailures),
		SideEffectFailures: atomic.LoadInt64(&s.sideEffectFailures),
	}
}

func (m Metrics) String() string {
	return fmt.Sprintf("generated=%d cache_hits=%d validation_failures=%d render_failures=%d side_effect_failures=%d",
		m.ChartsGenerated, m.CacheHits, m.ValidationFailures, m.RenderFailures, m.SideEffectFailures)
}
