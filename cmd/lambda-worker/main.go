package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"resume-gap-analyzer/internal/bootstrap"
	"resume-gap-analyzer/internal/shared/config"
	"resume-gap-analyzer/internal/shared/telemetry"
	"resume-gap-analyzer/internal/workerproc"
)

// app is built once per execution environment.
var app = sync.OnceValues(func() (*bootstrap.App, error) {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)
	return bootstrap.Build(cfg)
})

// handler reports partial batch failures so only retryable records return
// to the queue.
func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	built, err := app()
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error(), "records": len(event.Records)})
		return events.SQSEventResponse{}, err
	}

	var failures []events.SQSBatchItemFailure
	for _, record := range event.Records {
		if handleRecord(ctx, built.AnalysesService, record) {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

// handleRecord reports whether the record should be retried. Unrecoverable
// messages are dropped from the batch.
func handleRecord(ctx context.Context, proc workerproc.Processor, record events.SQSMessage) bool {
	receiveCount, _ := strconv.Atoi(record.Attributes["ApproximateReceiveCount"])
	disp := workerproc.Dispatch(ctx, proc, workerproc.Delivery{
		Body:         record.Body,
		Transport:    "lambda",
		MessageID:    record.MessageId,
		ReceiveCount: receiveCount,
	})
	return disp == workerproc.Retry
}

func main() {
	lambda.Start(handler)
}
