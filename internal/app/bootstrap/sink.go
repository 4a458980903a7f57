package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/lightbounty/booking-site/internal/config"
	"github.com/lightbounty/booking-site/internal/observability/metrics"
	"github.com/lightbounty/booking-site/internal/sink"
	"github.com/lightbounty/booking-site/pkg/logging"
)

// AWSConfigLoader resolves the shared AWS SDK configuration on demand.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

// BuildSink opens the sink selected by SINK_DRIVER and wraps it with metrics
// and tracing. The returned cleanup releases driver resources and is never nil.
func BuildSink(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, m *metrics.BookingMetrics, logger *logging.Logger) (sink.Sink, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, noop, fmt.Errorf("bootstrap: %w", err)
	}

	var (
		s       sink.Sink
		cleanup = noop
	)
	switch cfg.SinkDriver {
	case appconfig.SinkREST:
		rest, err := sink.NewRESTSink(sink.RESTConfig{
			BaseURL: cfg.SinkURL,
			APIKey:  cfg.SinkKey,
			Table:   cfg.SinkTable,
			Timeout: cfg.SinkTimeout,
		}, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: rest sink: %w", err)
		}
		s = rest
	case appconfig.SinkPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		s = sink.NewPostgresSink(pool)
		cleanup = pool.Close
	case appconfig.SinkDynamoDB:
		if loadAWS == nil {
			return nil, noop, fmt.Errorf("bootstrap: dynamodb sink needs an AWS config loader")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		s = sink.NewDynamoSink(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)
	case appconfig.SinkMemory:
		logger.Warn("memory sink selected; booking requests are not persisted")
		s = sink.NewMemorySink()
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown sink driver %q", cfg.SinkDriver)
	}

	logger.Info("booking sink configured", "driver", cfg.SinkDriver)
	return sink.NewInstrumented(s, cfg.SinkDriver, m), cleanup, nil
}
