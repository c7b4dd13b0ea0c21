package ledger

import (
	"context"
	"time"
)

// RecordStore persists the encoded pass record at a single location.
//
// Read returns domain.ErrRecordNotFound when nothing has been stored yet.
// Other failures are *domain.StorageError values of kind ErrReadFailure,
// ErrStorageUnavailable or ErrWriteFailure.
type RecordStore interface {
	Read(ctx context.Context) ([]byte, error)
	Prepare(ctx context.Context) error
	Write(ctx context.Context, data []byte) error
	Location() string
}

// Clock returns the current time.
type Clock func() time.Time
