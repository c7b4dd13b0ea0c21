package settings

import (
	"context"

	"github.com/tether-home/tether/internal/config"
)

// Store persists user settings.
type Store interface {
	Save(s config.Settings) error
}

// QuotaSetter changes the pass ledger's monthly quota.
type QuotaSetter interface {
	SetQuota(ctx context.Context, q uint32) (bool, error)
}
