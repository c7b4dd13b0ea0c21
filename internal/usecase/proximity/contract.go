package proximity

import (
	"context"
	"time"

	"github.com/tether-home/tether/internal/domain/device"
)

// Scanner talks to a Bluetooth adapter.
type Scanner interface {
	// Scan lists devices seen within timeout.
	Scan(ctx context.Context, timeout time.Duration) ([]device.Device, error)
	// RSSI returns the signal strength of address, or nil when it was not seen.
	RSSI(ctx context.Context, address string) (*int, error)
}

// TargetSource provides the currently paired phone.
type TargetSource interface {
	Target() device.Target
}
