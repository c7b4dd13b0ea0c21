// Package bluetooth holds Scanner adapters.
package bluetooth

import (
	"context"
	"strings"
	"time"

	"github.com/tether-home/tether/internal/domain/device"
)

// StaticScanner reports a fixed set of devices. It backs the "mock"
// adapter used in development and on hosts without a radio.
type StaticScanner struct {
	devices []device.Device
}

// NewStaticScanner creates a scanner that always sees devices.
func NewStaticScanner(devices []device.Device) *StaticScanner {
	cp := make([]device.Device, len(devices))
	copy(cp, devices)
	return &StaticScanner{devices: cp}
}

// Scan returns the configured devices. It does not wait for timeout.
func (s *StaticScanner) Scan(ctx context.Context, _ time.Duration) ([]device.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]device.Device, len(s.devices))
	copy(out, s.devices)
	return out, nil
}

// RSSI returns the configured signal strength of address, matched
// case-insensitively, or nil when the device is not in the set.
func (s *StaticScanner) RSSI(ctx context.Context, address string) (*int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, d := range s.devices {
		if strings.EqualFold(d.Address, address) {
			if d.RSSI == nil {
				return nil, nil
			}
			v := *d.RSSI
			return &v, nil
		}
	}
	return nil, nil
}
