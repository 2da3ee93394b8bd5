package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-gap-analyzer/internal/queue"
	"resume-gap-analyzer/internal/shared/metrics"
	"resume-gap-analyzer/internal/shared/telemetry"
)

// Failure kinds. Match with errors.Is against a *MessageError.
var (
	ErrEmptyBody          = errors.New("empty message body")
	ErrDecode             = errors.New("decode message")
	ErrMissingAnalysisID  = errors.New("missing analysis id")
	ErrUnsupportedVersion = errors.New("unsupported message version")
	ErrProcess            = errors.New("process analysis")
	ErrNoProcessor        = errors.New("analysis service not configured")
)

// MessageError describes why a job message could not be handled.
type MessageError struct {
	Kind       error
	AnalysisID string
	RequestID  string
	BodyLen    int
	BodySHA    string
	Err        error
}

func (e *MessageError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *MessageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Processor runs a stored analysis by ID.
type Processor interface {
	ProcessAnalysis(ctx context.Context, analysisID string) error
}

// Disposition tells a transport what to do with a delivered message.
type Disposition int

const (
	// Ack removes a handled message.
	Ack Disposition = iota
	// Drop removes a message that can never succeed.
	Drop
	// Retry leaves the message for redelivery or dead-lettering.
	Retry
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Drop:
		return "drop"
	default:
		return "retry"
	}
}

// Delivery is a raw message plus transport details used for logging.
type Delivery struct {
	Body         string
	Transport    string
	MessageID    string
	ReceiveCount int
}

// Parse validates and decodes a job payload.
func Parse(body string) (queue.Message, error) {
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, &MessageError{Kind: ErrEmptyBody}
	}
	sum := sha256.Sum256([]byte(body))
	bodySHA := hex.EncodeToString(sum[:])

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, &MessageError{Kind: ErrDecode, BodyLen: len(body), BodySHA: bodySHA, Err: err}
	}
	if strings.TrimSpace(msg.AnalysisID) == "" {
		return msg, &MessageError{Kind: ErrMissingAnalysisID, RequestID: msg.RequestID, BodyLen: len(body), BodySHA: bodySHA}
	}
	if !msg.Supported() {
		return msg, &MessageError{
			Kind:       ErrUnsupportedVersion,
			AnalysisID: msg.AnalysisID,
			RequestID:  msg.RequestID,
			Err:        fmt.Errorf("version %d", msg.Version),
		}
	}
	return msg, nil
}

// handle parses body and runs the referenced analysis under the message's
// request ID.
func handle(ctx context.Context, processor Processor, body string) (queue.Message, error) {
	if processor == nil {
		return queue.Message{}, ErrNoProcessor
	}
	msg, err := Parse(body)
	if err != nil {
		return msg, err
	}

	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	if err := processor.ProcessAnalysis(ctx, msg.AnalysisID); err != nil {
		return msg, &MessageError{Kind: ErrProcess, AnalysisID: msg.AnalysisID, RequestID: msg.RequestID, Err: err}
	}
	return msg, nil
}

// Unrecoverable reports whether redelivering the message cannot help.
func Unrecoverable(err error) bool {
	return errors.Is(err, ErrEmptyBody) ||
		errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrMissingAnalysisID) ||
		errors.Is(err, ErrUnsupportedVersion)
}

// DispositionFor maps a handling result onto a Disposition.
func DispositionFor(err error) Disposition {
	switch {
	case err == nil:
		return Ack
	case Unrecoverable(err):
		return Drop
	default:
		return Retry
	}
}

// Dispatch handles one delivery, records job metrics and logs the result.
func Dispatch(ctx context.Context, processor Processor, d Delivery) Disposition {
	metrics.IncJob(d.Transport, metrics.JobReceived)
	msg, err := handle(ctx, processor, d.Body)
	disp := DispositionFor(err)

	fields := map[string]any{
		"transport":     d.Transport,
		"message_id":    d.MessageID,
		"receive_count": d.ReceiveCount,
		"disposition":   disp.String(),
		"analysis_id":   msg.AnalysisID,
	}
	if msg.RequestID != "" {
		fields["request_id"] = msg.RequestID
	}
	if age := msg.Age(time.Now()); age > 0 {
		fields["queue_age_ms"] = age.Milliseconds()
	}
	var msgErr *MessageError
	if errors.As(err, &msgErr) && msgErr.BodySHA != "" {
		fields["body_len"] = msgErr.BodyLen
		fields["body_sha256"] = msgErr.BodySHA
	}

	switch disp {
	case Ack:
		metrics.IncJob(d.Transport, metrics.JobCompleted)
		telemetry.Info("worker.analysis.completed", fields)
	case Drop:
		fields["error"] = err.Error()
		metrics.IncJob(d.Transport, metrics.JobDropped)
		telemetry.Error("worker.analysis.unrecoverable", fields)
	default:
		fields["error"] = err.Error()
		metrics.IncJob(d.Transport, metrics.JobFailed)
		telemetry.Error("worker.analysis.failed", fields)
	}
	return disp
}
