package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"whatsapp-core/internal/pipeline"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
)

// Consumer long-polls the queue and runs each payload through the send
// pipeline. A message is deleted only after a successful send+persist, so a
// crash in between redelivers it (at-least-once).
type Consumer struct {
	Client    QueueAPI
	QueueURL  string
	Sender    Sender
	BatchSize int32
	WaitTime  time.Duration
	PollPause time.Duration
	Logger    zerolog.Logger
}

// Run polls until ctx is canceled. Poll and processing errors are logged and
// the loop pauses for PollPause before the next poll.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		out, err := c.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.QueueURL),
			MaxNumberOfMessages: c.BatchSize,
			WaitTimeSeconds:     int32(c.WaitTime / time.Second),
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Logger.Error().Err(err).Msg("queue poll failed")
			c.pause(ctx)
			continue
		}

		hadErr := false
		for _, m := range out.Messages {
			if !c.processOne(ctx, m.Body, m.ReceiptHandle) {
				hadErr = true
			}
		}
		if hadErr {
			c.pause(ctx)
		}
	}
}

// processOne returns false when the message must stay on the queue for
// redelivery.
func (c *Consumer) processOne(ctx context.Context, body, receiptHandle *string) bool {
	var p pipeline.Payload
	if body == nil || json.Unmarshal([]byte(*body), &p) != nil {
		// Malformed payloads can never succeed; leave them to the queue's
		// redrive policy.
		c.Logger.Error().Msg("malformed queue message")
		return false
	}

	if _, err := c.Sender.SendAndPersist(ctx, p); err != nil {
		c.Logger.Warn().Str("to", p.To).Err(err).Msg("queued send failed, message left for redelivery")
		return false
	}

	_, err := c.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.QueueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		// Already sent; redelivery will duplicate. Acceptable under
		// at-least-once semantics.
		c.Logger.Error().Str("to", p.To).Err(err).Msg("queue acknowledge failed")
		return false
	}
	return true
}

func (c *Consumer) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.PollPause):
	}
}
