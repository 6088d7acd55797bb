package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	d "github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
)

const addressColumns = `
	id, user_id, name, address_line1, address_line2, city, state, postal_code,
	country, phone_number, is_default, is_shipping_address, is_billing_address,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(s rowScanner) (*d.Address, error) {
	var a d.Address
	err := s.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.AddressLine1,
		&a.AddressLine2,
		&a.City,
		&a.State,
		&a.PostalCode,
		&a.Country,
		&a.PhoneNumber,
		&a.IsDefault,
		&a.IsShippingAddress,
		&a.IsBillingAddress,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAddresses returns the user's addresses, default first, then newest first.
func (r *Repository) ListAddresses(ctx context.Context, userID string) ([]*d.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*d.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return addresses, nil
}

func (r *Repository) GetAddress(ctx context.Context, userID, addressID string) (*d.Address, error) {
	return getAddress(ctx, r.db, userID, addressID, false)
}

// CreateAddress makes the user's first address the default unless the input
// says otherwise. A new default clears the previous one.
func (r *Repository) CreateAddress(ctx context.Context, userID string, in d.AddressInput) (*d.Address, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// serialize default bookkeeping per user
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return nil, fmt.Errorf("failed to lock user addresses: %w", err)
	}

	isDefault := false
	if in.IsDefault != nil {
		isDefault = *in.IsDefault
	} else {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses WHERE user_id = $1`, userID).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count addresses: %w", err)
		}
		isDefault = count == 0
	}

	if isDefault {
		if err := clearDefault(ctx, tx, userID); err != nil {
			return nil, err
		}
	}

	query := `
		INSERT INTO addresses (id, user_id, name, address_line1, address_line2, city, state,
			postal_code, country, phone_number, is_default, is_shipping_address, is_billing_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + addressColumns

	a, err := scanAddress(tx.QueryRowContext(ctx, query,
		uuid.NewString(),
		userID,
		in.Name,
		in.AddressLine1,
		in.AddressLine2,
		in.City,
		in.State,
		in.PostalCode,
		strings.ToUpper(in.Country),
		in.PhoneNumber,
		isDefault,
		boolOr(in.IsShippingAddress, true),
		boolOr(in.IsBillingAddress, true),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert address: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return a, nil
}

// UpdateAddress applies the non-nil fields of patch.
func (r *Repository) UpdateAddress(ctx context.Context, userID, addressID string, patch d.AddressPatch) (*d.Address, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return nil, fmt.Errorf("failed to lock user addresses: %w", err)
	}

	a, err := getAddress(ctx, tx, userID, addressID, true)
	if err != nil {
		return nil, err
	}

	applyPatch(a, patch)
	if patch.IsDefault != nil && *patch.IsDefault {
		if err := clearDefault(ctx, tx, userID); err != nil {
			return nil, err
		}
	}

	query := `
		UPDATE addresses
		SET name = $3, address_line1 = $4, address_line2 = $5, city = $6, state = $7,
			postal_code = $8, country = $9, phone_number = $10, is_default = $11,
			is_shipping_address = $12, is_billing_address = $13, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + addressColumns

	updated, err := scanAddress(tx.QueryRowContext(ctx, query,
		a.ID,
		userID,
		a.Name,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.State,
		a.PostalCode,
		a.Country,
		a.PhoneNumber,
		a.IsDefault,
		a.IsShippingAddress,
		a.IsBillingAddress,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, nil
}

// DeleteAddress removes the address. If it was the default, the most recently
// created remaining address becomes the default.
func (r *Repository) DeleteAddress(ctx context.Context, userID, addressID string) error {
	if _, err := uuid.Parse(addressID); err != nil {
		return ErrAddressNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("failed to lock user addresses: %w", err)
	}

	var wasDefault bool
	err = tx.QueryRowContext(ctx,
		`DELETE FROM addresses WHERE id = $1 AND user_id = $2 RETURNING is_default`,
		addressID, userID).Scan(&wasDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAddressNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}

	if wasDefault {
		_, err = tx.ExecContext(ctx, `
			UPDATE addresses SET is_default = TRUE, updated_at = NOW()
			WHERE id = (
				SELECT id FROM addresses WHERE user_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT 1
			)`, userID)
		if err != nil {
			return fmt.Errorf("failed to promote default address: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAddress(ctx context.Context, q querier, userID, addressID string, forUpdate bool) (*d.Address, error) {
	if _, err := uuid.Parse(addressID); err != nil {
		return nil, ErrAddressNotFound
	}
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	a, err := scanAddress(q.QueryRowContext(ctx, query, addressID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return a, nil
}

func clearDefault(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_default`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear default address: %w", err)
	}
	return nil
}

func applyPatch(a *d.Address, p d.AddressPatch) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&a.Name, p.Name)
	setString(&a.AddressLine1, p.AddressLine1)
	setString(&a.City, p.City)
	setString(&a.PostalCode, p.PostalCode)
	if p.Country != nil {
		a.Country = strings.ToUpper(*p.Country)
	}
	if p.AddressLine2 != nil {
		a.AddressLine2 = p.AddressLine2
	}
	if p.State != nil {
		a.State = p.State
	}
	if p.PhoneNumber != nil {
		a.PhoneNumber = p.PhoneNumber
	}
	if p.IsDefault != nil {
		a.IsDefault = *p.IsDefault
	}
	if p.IsShippingAddress != nil {
		a.IsShippingAddress = *p.IsShippingAddress
	}
	if p.IsBillingAddress != nil {
		a.IsBillingAddress = *p.IsBillingAddress
	}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
