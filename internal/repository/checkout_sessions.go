package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/go_storefront/internal/domain"
)

const (
	eventTypeCheckoutHandedOff = "checkout.handed_off"
	abandonedReason            = "abandoned: no platform answer before timeout"
)

const sessionColumns = `
	id, session_id, idempotency_key, status, cart_snapshot, checkout_url,
	failure_reason, attempts, created_at, updated_at`

func scanSession(s interface{ Scan(...any) error }) (*d.CheckoutSession, error) {
	var (
		session d.CheckoutSession
		status  string
	)
	err := s.Scan(
		&session.ID,
		&session.SessionID,
		&session.IdempotencyKey,
		&status,
		&session.Snapshot,
		&session.CheckoutURL,
		&session.FailureReason,
		&session.Attempts,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	session.Status = d.CheckoutStatus(status)
	return &session, nil
}

func (r *Repository) GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*d.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE idempotency_key = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckoutSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	return session, nil
}

func (r *Repository) GetCheckoutSession(ctx context.Context, checkoutID string) (*d.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, checkoutID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckoutSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	return session, nil
}

func (r *Repository) CreateCheckoutSession(ctx context.Context, session *d.CheckoutSession) error {
	if session.Attempts == 0 {
		session.Attempts = 1
	}
	query := `
		INSERT INTO checkout_sessions (id, session_id, idempotency_key, status, cart_snapshot, attempts)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.SessionID,
		session.IdempotencyKey,
		string(session.Status),
		session.Snapshot,
		session.Attempts,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateIdempotencyKey
	}
	if err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	return nil
}

// ReopenCheckoutSession moves a rejected or failed session back to INITIATED
// with a fresh snapshot for another attempt.
func (r *Repository) ReopenCheckoutSession(ctx context.Context, checkoutID string, snapshot []byte) error {
	query := `
		UPDATE checkout_sessions
		SET status = $2, cart_snapshot = $3, failure_reason = NULL,
		    attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)`

	res, err := r.db.ExecContext(ctx, query,
		checkoutID,
		string(d.CheckoutStatusInitiated),
		snapshot,
		string(d.CheckoutStatusRejected),
		string(d.CheckoutStatusFailed),
	)
	if err != nil {
		return fmt.Errorf("failed to reopen checkout session: %w", err)
	}
	return r.expectOneRow(ctx, res, checkoutID)
}

func (r *Repository) FailCheckoutSession(ctx context.Context, checkoutID string, status d.CheckoutStatus, reason string) error {
	if !d.CanTransitionTo(d.CheckoutStatusInitiated, status) || status == d.CheckoutStatusHandedOff {
		return ErrIllegalTransition
	}
	query := `
		UPDATE checkout_sessions
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`

	res, err := r.db.ExecContext(ctx, query, checkoutID, string(status), reason, string(d.CheckoutStatusInitiated))
	if err != nil {
		return fmt.Errorf("failed to fail checkout session: %w", err)
	}
	return r.expectOneRow(ctx, res, checkoutID)
}

// CompleteCheckoutSession marks the session HANDED_OFF and queues the outbox
// event in the same transaction.
func (r *Repository) CompleteCheckoutSession(ctx context.Context, checkoutID, checkoutURL string, payload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE checkout_sessions
		SET status = $2, checkout_url = $3, failure_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		checkoutID,
		string(d.CheckoutStatusHandedOff),
		checkoutURL,
		string(d.CheckoutStatusInitiated),
	)
	if err != nil {
		return fmt.Errorf("failed to complete checkout session: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		if _, err := r.GetCheckoutSession(ctx, checkoutID); err != nil {
			return err
		}
		return ErrIllegalTransition
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_events (aggregate_id, event_type, payload)
		VALUES ($1, $2, $3)`,
		checkoutID, eventTypeCheckoutHandedOff, payload)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FailStaleCheckoutSessions fails INITIATED sessions untouched for longer than
// olderThan and returns their ids.
func (r *Repository) FailStaleCheckoutSessions(ctx context.Context, olderThan time.Duration) ([]string, error) {
	query := `
		UPDATE checkout_sessions
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE status = $3 AND updated_at < $4
		RETURNING id`

	rows, err := r.db.QueryContext(ctx, query,
		string(d.CheckoutStatusFailed),
		abandonedReason,
		string(d.CheckoutStatusInitiated),
		time.Now().Add(-olderThan),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fail stale sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

func (r *Repository) expectOneRow(ctx context.Context, res sql.Result, checkoutID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetCheckoutSession(ctx, checkoutID); err != nil {
		return err
	}
	return ErrIllegalTransition
}
