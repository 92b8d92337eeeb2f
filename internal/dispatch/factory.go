package dispatch

import (
	"context"
	"fmt"

	"whatsapp-core/internal/config"
	"whatsapp-core/internal/metrics"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
)

// New selects the dispatcher once at startup from DISPATCH_MODE. The returned
// Consumer is nil in inline mode.
func New(ctx context.Context, cfg *config.Config, sender Sender, collector *metrics.Collector, logger zerolog.Logger) (Dispatcher, *Consumer, error) {
	switch cfg.DispatchMode {
	case "queue":
		if cfg.QueueURL == "" {
			return nil, nil, fmt.Errorf("QUEUE_URL required for queue dispatch mode")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := sqs.NewFromConfig(awsCfg)

		consumer := &Consumer{
			Client:    client,
			QueueURL:  cfg.QueueURL,
			Sender:    sender,
			BatchSize: int32(cfg.QueueBatchSize),
			WaitTime:  cfg.QueueWaitTime,
			PollPause: cfg.QueuePollPause,
			Logger:    logger.With().Str("component", "consumer").Logger(),
		}
		return NewQueue(client, cfg.QueueURL, logger), consumer, nil

	case "inline", "":
		return NewInline(sender, DefaultSchedule, collector, logger), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown dispatch mode %q", cfg.DispatchMode)
	}
}
