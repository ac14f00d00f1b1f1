package backend

import (
	"fmt"

	"cofipei/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	return Config{
		ReportDBPath:   appConfig.ReportDBPath,
		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			return fmt.Errorf("AMQP exchange is required when AMQP URL is set")
		}
		if c.AMQPRoutingKey == "" {
			return fmt.Errorf("AMQP routing key is required when AMQP URL is set")
		}
	}
	return nil
}

func (c Config) ReportsEnabled() bool {
	return c.ReportDBPath != ""
}

func (c Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}
