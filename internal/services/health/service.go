package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the payload served by the health endpoint.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Analyzer string `json:"analyzer"`
	Queue    string `json:"queue"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB Pinger
	// AnalyzerMode is "ai" when a completion credential is configured and the
	// credential policy name otherwise.
	AnalyzerMode string
	QueueBackend string
	Timeout      time.Duration
}

// NewService constructs a new health service.
func NewService(db Pinger, analyzerMode, queueBackend string) *Service {
	return &Service{DB: db, AnalyzerMode: analyzerMode, QueueBackend: queueBackend, Timeout: 2 * time.Second}
}

// Status reports component state. OK is false only when a configured
// database fails to answer a ping.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Database: "memory", Analyzer: s.AnalyzerMode, Queue: s.QueueBackend}
	if st.Analyzer == "" {
		st.Analyzer = "heuristic"
	}
	if st.Queue == "" {
		st.Queue = "none"
	}
	if s.DB == nil {
		return st
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		st.OK = false
		st.Database = "unavailable"
		return st
	}
	st.Database = "postgres"
	return st
}
