package backend

import (
	"context"

	"cofipei/internal/core"
)

// ReportStore persists and lists chart generation records.
type ReportStore interface {
	Record(ctx context.Context, rec core.ReportRecord) error
	ListRecent(ctx context.Context, limit int) ([]core.ReportRecord, error)
	Ping(ctx context.Context) error
}

// EventPublisher announces generated charts to downstream consumers.
type EventPublisher interface {
	PublishChartGenerated(ctx context.Context, rec core.ReportRecord) error
	Ping(ctx context.Context) error
}

// CleanupFunc releases resources held by a Result.
type CleanupFunc func() error

// Result holds the optional dependencies built from configuration. Nil
// fields mean the feature is disabled.
type Result struct {
	Reports ReportStore
	Events  EventPublisher
	Cleanup CleanupFunc
}

// Close runs Cleanup if set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates the optional dependencies of the chart service.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config selects which optional dependencies to build.
type Config struct {
	// Report log, disabled when empty
	ReportDBPath string

	// Event publishing, disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}
