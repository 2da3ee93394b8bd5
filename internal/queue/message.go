package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is the newest job schema this build produces and accepts.
// Messages without a version are treated as version 1.
const MessageVersion = 1

// Message points a worker at a stored analysis. It never carries resume text
// or credentials.
type Message struct {
	AnalysisID string `json:"analysisId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a job for analysisID with the current schema version.
func NewMessage(analysisID, requestID string, enqueuedAt time.Time) Message {
	return Message{
		AnalysisID: analysisID,
		RequestID:  requestID,
		EnqueuedAt: enqueuedAt.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// Supported reports whether this build understands the message schema.
func (m Message) Supported() bool {
	return m.Version <= MessageVersion
}

// Age returns how long the message has waited since it was enqueued, or zero
// when EnqueuedAt is missing or malformed.
func (m Message) Age(now time.Time) time.Duration {
	at, err := time.Parse(time.RFC3339, m.EnqueuedAt)
	if err != nil || now.Before(at) {
		return 0
	}
	return now.Sub(at)
}

func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a job payload. Unknown fields are ignored.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
