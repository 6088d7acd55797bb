package publisher

import (
	"context"
	"log/slog"
	"time"

	r "github.com/fjod/go_storefront/internal/repository"
	"github.com/segmentio/kafka-go"
)

const (
	HandoffTopic = "checkout-handoff"
	batchSize    = 100
)

type Repository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	FailStaleCheckoutSessions(ctx context.Context, olderThan time.Duration) ([]string, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	EventTick    time.Duration
	RecoveryTick time.Duration
	// StaleAfter is how long a session may stay INITIATED before it is failed.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		EventTick:    time.Second,
		RecoveryTick: 30 * time.Second,
		StaleAfter:   10 * time.Minute,
	}
}

// OutboxPoller publishes handoff events from the outbox table to Kafka and
// fails checkout sessions that never got an answer from the platform.
type OutboxPoller struct {
	cfg    Config
	repo   Repository
	writer MessageWriter
	logger *slog.Logger
}

func NewKafkaWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  HandoffTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

func NewOutboxPoller(repo Repository, writer MessageWriter, cfg Config, logger *slog.Logger) *OutboxPoller {
	def := DefaultConfig()
	if cfg.EventTick <= 0 {
		cfg.EventTick = def.EventTick
	}
	if cfg.RecoveryTick <= 0 {
		cfg.RecoveryTick = def.RecoveryTick
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	return &OutboxPoller{cfg: cfg, repo: repo, writer: writer, logger: logger}
}

// Run blocks until ctx is done.
func (p *OutboxPoller) Run(ctx context.Context) error {
	eventTicker := time.NewTicker(p.cfg.EventTick)
	recoveryTicker := time.NewTicker(p.cfg.RecoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()

	p.logger.InfoContext(ctx, "outbox poller started", "topic", HandoffTopic)
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.failStaleSessions(ctx)
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return nil
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish outbox event", "event_id", event.ID, "error", err)
			// keep order per checkout: later events wait for the next tick
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.ErrorContext(ctx, "failed to mark event as processed", "event_id", event.ID, "error", err)
			continue
		}
	}
}

func (p *OutboxPoller) failStaleSessions(ctx context.Context) {
	ids, err := p.repo.FailStaleCheckoutSessions(ctx, p.cfg.StaleAfter)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to fail stale checkout sessions", "error", err)
		return
	}
	for _, id := range ids {
		p.logger.WarnContext(ctx, "checkout session abandoned", "checkout_id", id)
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
