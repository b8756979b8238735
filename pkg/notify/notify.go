package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Config describes the NATS connection used for publication events.
type Config struct {
	URL     string
	Subject string
}

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "darasa.results.published"

// Service dispatches result-published events over NATS. Delivery and retry
// semantics belong to the consumers of the subject, not to this publisher.
type Service struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
	now     func() time.Time
}

// Event is the payload published for every freshly published result.
type Event struct {
	StudentID   uint      `json:"student_id"`
	ResultID    uint      `json:"result_id"`
	PublishedAt time.Time `json:"published_at"`
}

// New connects to NATS and constructs the dispatcher.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("darasa-results"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return NewWithConn(conn, cfg.Subject, logger), nil
}

// NewWithConn wraps an existing connection, e.g. a test double.
func NewWithConn(conn *nats.Conn, subject string, logger zerolog.Logger) *Service {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	return &Service{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "notify").Logger(),
		now:     time.Now,
	}
}

// ResultPublished emits one event per (student, result) pair.
func (s *Service) ResultPublished(_ context.Context, studentID, resultID uint) error {
	payload, err := json.Marshal(Event{
		StudentID:   studentID,
		ResultID:    resultID,
		PublishedAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("failed to publish result event: %w", err)
	}

	s.logger.Debug().
		Uint("student_id", studentID).
		Uint("result_id", resultID).
		Str("subject", s.subject).
		Msg("publication event dispatched")

	return nil
}

// Close drains the underlying connection.
func (s *Service) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
