package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"resume-gap-analyzer/internal/shared/telemetry"
)

const (
	sqsMaxMessages     = 10
	sqsWaitTimeSeconds = 20
)

type sqsReceiver interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// SQSConsumer long-polls an SQS queue. Settled messages are deleted; the rest
// reappear after the visibility timeout and eventually reach the redrive
// queue.
type SQSConsumer struct {
	client            sqsReceiver
	queueURL          string
	VisibilityTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// NewSQSConsumer constructs a consumer for queueURL.
func NewSQSConsumer(ctx context.Context, queueURL, region string, visibility, shutdown time.Duration) (*SQSConsumer, error) {
	client, queueURL, err := newSQS(ctx, queueURL, region)
	if err != nil {
		return nil, err
	}
	return &SQSConsumer{client: client, queueURL: queueURL, VisibilityTimeout: visibility, ShutdownTimeout: shutdown}, nil
}

// Consume polls until ctx is cancelled, running up to concurrency handlers at
// once. In-flight handlers keep running after cancellation for at most
// ShutdownTimeout.
func (c *SQSConsumer) Consume(ctx context.Context, concurrency int, handle Handler) error {
	concurrency = max(1, concurrency)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	work := context.WithoutCancel(ctx)

poll:
	for ctx.Err() == nil {
		resp, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: sqsMaxMessages,
			WaitTimeSeconds:     sqsWaitTimeSeconds,
			VisibilityTimeout:   int32(c.VisibilityTimeout / time.Second),
			AttributeNames:      []sqstypes.QueueAttributeName{"ApproximateReceiveCount"},
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				break
			}
			telemetry.Error("sqs.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for i, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				c.release(work, resp.Messages[i:])
				break poll
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				c.handle(work, m, handle)
			}(msg)
		}
	}

	drain(&wg, c.ShutdownTimeout, "sqs.shutdown_timeout")
	return nil
}

func (c *SQSConsumer) handle(ctx context.Context, msg sqstypes.Message, handle Handler) {
	d := Delivery{
		Body:      []byte(aws.ToString(msg.Body)),
		MessageID: aws.ToString(msg.MessageId),
		Attempt:   receiveCount(msg),
	}
	if !settled(handle(ctx, d)) {
		return
	}

	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.Error("sqs.delete_failed", map[string]any{"message_id": d.MessageID, "error": "missing receipt handle"})
		return
	}
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		telemetry.Error("sqs.delete_failed", map[string]any{"message_id": d.MessageID, "error": err.Error()})
	}
}

// release makes received but unhandled messages visible again right away.
func (c *SQSConsumer) release(ctx context.Context, msgs []sqstypes.Message) {
	for _, m := range msgs {
		if m.ReceiptHandle == nil {
			continue
		}
		if _, err := c.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(c.queueURL),
			ReceiptHandle:     m.ReceiptHandle,
			VisibilityTimeout: 0,
		}); err != nil {
			telemetry.Warn("sqs.release_failed", map[string]any{"message_id": aws.ToString(m.MessageId), "error": err.Error()})
		}
	}
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
