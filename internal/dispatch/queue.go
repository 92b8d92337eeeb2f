package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"whatsapp-core/internal/pipeline"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
)

// QueueAPI is the slice of the SQS client the dispatcher and consumer use.
type QueueAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Queue submits payloads to a managed durable queue; a separate Consumer
// delivers them.
type Queue struct {
	Client   QueueAPI
	QueueURL string
	Logger   zerolog.Logger
}

func NewQueue(client QueueAPI, queueURL string, logger zerolog.Logger) *Queue {
	return &Queue{Client: client, QueueURL: queueURL, Logger: logger}
}

func (q *Queue) Enqueue(ctx context.Context, p pipeline.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("serialize payload: %w", err)
	}

	_, err = q.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.QueueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("submit to queue: %w", err)
	}

	q.Logger.Debug().Str("to", p.To).Msg("payload queued")
	return nil
}
