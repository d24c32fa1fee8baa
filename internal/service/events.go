package service

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event subjects published on the message bus.
const (
	SubjectJudgesDistributed = "pitcharena.judging.distributed"
	SubjectSubmissionScored  = "pitcharena.judging.scored"
	SubjectWinnersSelected   = "pitcharena.competition.winners"
	SubjectCompetitionStatus = "pitcharena.competition.status"
	SubjectPayoutCompleted   = "pitcharena.payouts.completed"
)

// EventPublisher broadcasts domain events to interested consumers. Publishing
// is best-effort; services log failures but never fail the request over them.
type EventPublisher interface {
	Publish(subject string, payload any) error
}

type natsPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSPublisher wraps a NATS connection as an EventPublisher. A nil
// connection yields a publisher that drops events, which keeps local
// development working without a broker.
func NewNATSPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	return &natsPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsPublisher) Publish(subject string, payload any) error {
	if p.conn == nil {
		return nil
	}

	envelope := struct {
		Subject string    `json:"subject"`
		SentAt  time.Time `json:"sent_at"`
		Data    any       `json:"data"`
	}{Subject: subject, SentAt: time.Now().UTC(), Data: payload}

	encoded, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, encoded); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
		return err
	}
	return nil
}
