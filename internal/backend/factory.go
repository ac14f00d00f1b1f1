package backend

import (
	"context"
	"errors"
	"fmt"

	"cofipei/internal/amqp"
	"cofipei/internal/log"
	"cofipei/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.NewDefault()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// Create builds the report store and event publisher enabled by config. A
// report store that cannot be opened is an error; an unreachable broker
// only disables event publishing.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}
	var closers []func() error

	if config.ReportsEnabled() {
		repo, err := storage.NewReportRepository(config.ReportDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize report repository: %w", err)
		}
		result.Reports = repo
		closers = append(closers, repo.Close)
		f.logger.InfoContext(ctx, "Initialized report log", "db_path", config.ReportDBPath)
	}

	if config.EventsEnabled() {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			result.Events = client
			closers = append(closers, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"reports_enabled", result.Reports != nil,
		"events_enabled", result.Events != nil)

	return result, nil
}
