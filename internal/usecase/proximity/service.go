package proximity

import (
	"context"
	"fmt"
	"time"

	"github.com/tether-home/tether/internal/domain"
	"github.com/tether-home/tether/internal/domain/device"
	"github.com/tether-home/tether/internal/metrics"
)

// Service answers whether the paired phone is near.
type Service struct {
	scanner     Scanner
	targets     TargetSource
	scanTimeout time.Duration
	now         func() time.Time
}

// New creates a Service. scanner can be nil (no adapter on this host).
func New(scanner Scanner, targets TargetSource, scanTimeout time.Duration) *Service {
	return &Service{
		scanner:     scanner,
		targets:     targets,
		scanTimeout: scanTimeout,
		now:         time.Now,
	}
}

// Available reports whether a Bluetooth adapter is present.
func (s *Service) Available() bool {
	return s.scanner != nil
}

// Check measures the paired phone's signal against its threshold.
func (s *Service) Check(ctx context.Context) (device.Proximity, error) {
	target := s.targets.Target()
	if !target.Configured() {
		return device.Proximity{}, domain.ErrDeviceNotConfigured
	}
	if s.scanner == nil {
		return device.Proximity{}, domain.ErrScannerUnavailable
	}

	rssi, err := s.scanner.RSSI(ctx, target.Address)
	if err != nil {
		metrics.ProximityChecksTotal.WithLabelValues("error").Inc()
		return device.Proximity{}, fmt.Errorf("%w: %w", domain.ErrScanFailed, err)
	}

	p := device.Proximity{
		Target:    target,
		Nearby:    device.IsNearby(rssi, target.RSSIThreshold),
		RSSI:      rssi,
		CheckedAt: s.now().UTC(),
	}
	if p.Nearby {
		metrics.ProximityChecksTotal.WithLabelValues("nearby").Inc()
	} else {
		metrics.ProximityChecksTotal.WithLabelValues("away").Inc()
	}
	return p, nil
}

// ScanResult is the outcome of a device discovery scan.
type ScanResult struct {
	Devices   []device.Device
	Duration  time.Duration
	ScannedAt time.Time
}

// Devices discovers nearby devices, for pairing during onboarding.
func (s *Service) Devices(ctx context.Context) (ScanResult, error) {
	if s.scanner == nil {
		return ScanResult{}, domain.ErrScannerUnavailable
	}
	devices, err := s.scanner.Scan(ctx, s.scanTimeout)
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: %w", domain.ErrScanFailed, err)
	}
	return ScanResult{
		Devices:   devices,
		Duration:  s.scanTimeout,
		ScannedAt: s.now().UTC(),
	}, nil
}
