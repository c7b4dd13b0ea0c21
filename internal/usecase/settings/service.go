// Package settings manages the user-editable part of the configuration:
// the paired phone, the timezone, the pass quota and onboarding state.
package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tether-home/tether/internal/config"
	"github.com/tether-home/tether/internal/domain"
	"github.com/tether-home/tether/internal/domain/device"
	"github.com/tether-home/tether/internal/domain/pass"
)

// Service holds the current settings and saves every change.
type Service struct {
	mu     sync.RWMutex
	cur    config.Settings
	loc    *time.Location
	store  Store
	passes QuotaSetter
	log    *zap.Logger
}

// New creates a Service from validated initial settings.
func New(initial config.Settings, store Store, passes QuotaSetter, log *zap.Logger) (*Service, error) {
	loc, err := device.LoadTimezone(initial.System.Timezone)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cur: initial, loc: loc, store: store, passes: passes, log: log}, nil
}

// Snapshot returns the current settings.
func (s *Service) Snapshot() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Target returns the paired phone.
func (s *Service) Target() device.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return device.Target{
		Address:       s.cur.Bluetooth.TargetAddress,
		Name:          s.cur.Bluetooth.TargetName,
		RSSIThreshold: s.cur.Bluetooth.RSSIThreshold,
	}
}

// Location returns the configured timezone.
func (s *Service) Location() *time.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc
}

// OnboardingComplete reports whether onboarding has been completed.
func (s *Service) OnboardingComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.System.OnboardingComplete
}

// NextReset returns the first instant of the month after now in the
// configured timezone.
func (s *Service) NextReset(now time.Time) time.Time {
	loc := s.Location()
	local := now.In(loc)
	return time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, loc)
}

// UpdateBluetooth pairs a new phone. A nil threshold keeps the current one.
func (s *Service) UpdateBluetooth(_ context.Context, address, name string, threshold *int) (config.TargetSettings, error) {
	addr, err := device.NormalizeAddress(address)
	if err != nil {
		return config.TargetSettings{}, err
	}
	if threshold != nil {
		if err := device.ValidateRSSIThreshold(*threshold); err != nil {
			return config.TargetSettings{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	next.Bluetooth.TargetAddress = addr
	next.Bluetooth.TargetName = name
	if threshold != nil {
		next.Bluetooth.RSSIThreshold = *threshold
	}
	if err := s.save(next); err != nil {
		return config.TargetSettings{}, err
	}
	s.log.Info("bluetooth target updated", zap.String("address", addr), zap.String("name", name))
	return next.Bluetooth, nil
}

// UpdateTimezone sets the IANA timezone used for reset times.
func (s *Service) UpdateTimezone(_ context.Context, name string) error {
	loc, err := device.LoadTimezone(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	next.System.Timezone = name
	if err := s.save(next); err != nil {
		return err
	}
	s.loc = loc
	s.log.Info("timezone updated", zap.String("timezone", name))
	return nil
}

// UpdatePassesPerMonth changes the ledger quota and records it as the
// configured allowance. It reports whether the ledger applied it now.
func (s *Service) UpdatePassesPerMonth(ctx context.Context, q uint32) (bool, error) {
	if err := pass.ValidateQuota(q); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := s.passes.SetQuota(ctx, q)
	if err != nil {
		return false, err
	}

	next := s.cur
	next.Passes.PerMonth = q
	if err := s.save(next); err != nil {
		return applied, err
	}
	return applied, nil
}

// CompleteOnboarding marks onboarding done. A phone must be paired first.
func (s *Service) CompleteOnboarding(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.System.OnboardingComplete {
		return domain.ErrOnboardingComplete
	}
	target := device.Target{Address: s.cur.Bluetooth.TargetAddress}
	if !target.Configured() {
		return domain.ErrDeviceNotConfigured
	}

	next := s.cur
	next.System.OnboardingComplete = true
	if err := s.save(next); err != nil {
		return err
	}
	s.log.Info("onboarding completed")
	return nil
}

// save persists next and makes it current. Caller holds the write lock.
func (s *Service) save(next config.Settings) error {
	if err := s.store.Save(next); err != nil {
		s.log.Error("failed to save settings", zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrSettingsSave, err)
	}
	s.cur = next
	return nil
}
