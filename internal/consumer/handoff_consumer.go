package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

const groupID = "storefront-cart-reconciler"

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CartOpener interface {
	Open(ctx context.Context, sessionID string) (*cart.Store, error)
}

type handoffEvent struct {
	CheckoutID   string            `json:"checkout_id"`
	SessionID    string            `json:"session_id"`
	CartRevision uint64            `json:"cart_revision"`
	Lines        []domain.CartLine `json:"lines"`
}

// HandoffConsumer reads checkout handoff events and clears a cart whose
// synchronous clear did not happen. Only a cart still at the handed-off
// revision is cleared; any later write, even one that rebuilds the same
// lines, keeps it.
type HandoffConsumer struct {
	reader MessageReader
	carts  CartOpener
	logger *slog.Logger
}

func NewKafkaReader(topic string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewHandoffConsumer(reader MessageReader, carts CartOpener, logger *slog.Logger) *HandoffConsumer {
	return &HandoffConsumer{reader: reader, carts: carts, logger: logger}
}

// Run blocks until ctx is done.
func (c *HandoffConsumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.consumeOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.ErrorContext(ctx, "failed to consume handoff event", "error", err)
		}
	}
}

func (c *HandoffConsumer) Close() error {
	return c.reader.Close()
}

func (c *HandoffConsumer) consumeOne(ctx context.Context) error {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return fmt.Errorf("error reading message: %w", err)
	}

	if err := c.handle(ctx, m); err != nil {
		// not committed: redelivered after a restart or rebalance
		return err
	}
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

func (c *HandoffConsumer) handle(ctx context.Context, m kafka.Message) error {
	var event handoffEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.logger.WarnContext(ctx, "skipping unparsable handoff event", "offset", m.Offset, "error", err)
		return nil
	}
	if event.SessionID == "" {
		c.logger.WarnContext(ctx, "skipping handoff event without session id", "checkout_id", event.CheckoutID)
		return nil
	}
	// a handed-off cart always has at least one write behind it
	if event.CartRevision == 0 {
		c.logger.WarnContext(ctx, "skipping handoff event without cart revision", "checkout_id", event.CheckoutID)
		return nil
	}

	store, err := c.carts.Open(ctx, event.SessionID)
	if err != nil {
		return fmt.Errorf("failed to open cart: %w", err)
	}
	cleared, err := store.ClearIfRevision(ctx, event.CartRevision)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if cleared {
		c.logger.InfoContext(ctx, "cleared cart left behind by checkout",
			"checkout_id", event.CheckoutID, "session_id", event.SessionID, "cart_revision", event.CartRevision)
	}
	return nil
}
