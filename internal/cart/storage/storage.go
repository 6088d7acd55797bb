package storage

import (
	"context"
	"errors"
)

// SnapshotStorage persists one serialized cart snapshot per browsing session.
// Implementations store the bytes as given; parsing belongs to the cart package.
type SnapshotStorage interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, snapshot []byte) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrSnapshotNotFound = errors.New("cart snapshot not found")
