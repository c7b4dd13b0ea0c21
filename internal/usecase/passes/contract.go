package passes

import (
	"context"

	"github.com/tether-home/tether/internal/domain/pass"
)

// Ledger is the single-threaded pass ledger guarded by Service.
type Ledger interface {
	Status() pass.Status
	History(month pass.Month) []pass.Entry
	Degraded() bool
	UsePass(ctx context.Context, reason string) (pass.Entry, error)
	SetQuota(ctx context.Context, q uint32) (bool, error)
	Rollover(ctx context.Context) (bool, error)
}
