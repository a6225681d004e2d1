package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject prefix events are published under.
const DefaultSubject = "researchcast.progress"

// NATSPublisher publishes events as JSON to "<subject>.<run_id>".
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     *slog.Logger
}

func ConnectNATS(url, subject string, log *slog.Logger) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("researchcast"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	log.Info("Connected to NATS", slog.String("url", url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject, log: log}, nil
}

// Subject returns the subject an event for runID is published on.
func (p *NATSPublisher) Subject(runID string) string {
	if runID == "" {
		return p.subject
	}
	return p.subject + "." + runID
}

// Handle satisfies Callback. Publish failures are logged, never returned,
// so a broken sink cannot fail a run.
func (p *NATSPublisher) Handle(e Event) {
	if e.Error != nil && e.ErrorText == "" {
		e.ErrorText = e.Error.Error()
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.log.Warn("Marshal progress event failed", "error", err)
		return
	}
	if err := p.conn.Publish(p.Subject(e.RunID), data); err != nil {
		p.log.Warn("Publish progress event failed", "stage", e.Stage, "error", err)
	}
}

func (p *NATSPublisher) Close() {
	if p == nil {
		return
	}
	_ = p.conn.Flush()
	p.conn.Close()
}
