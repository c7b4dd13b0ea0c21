// Package passes serialises access to the pass ledger for concurrent
// callers such as HTTP handlers.
package passes

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/tether-home/tether/internal/domain/pass"
	"github.com/tether-home/tether/internal/metrics"
)

// Service is the one exclusive-access wrapper around a Ledger. Mutating
// calls hold the write lock for their whole duration; reads share the
// read lock.
type Service struct {
	mu     sync.RWMutex
	ledger Ledger
	log    *zap.Logger
}

// New creates a Service and publishes the initial ledger gauges.
func New(l Ledger, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{ledger: l, log: log}
	s.publish()
	return s
}

// Status checks the month boundary and returns the current allowance.
// A failed rollover write is returned together with the in-memory status.
func (s *Service) Status(ctx context.Context) (pass.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.ledger.Rollover(ctx)
	if changed {
		metrics.RolloversTotal.Inc()
		s.publish()
	}
	return s.ledger.Status(), err
}

// Peek returns the allowance as stored, without a rollover check.
func (s *Service) Peek() pass.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Status()
}

// Degraded reports whether the ledger's last write failed.
func (s *Service) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Degraded()
}

// History returns the entries of month together with the active quota.
func (s *Service) History(month pass.Month) ([]pass.Entry, uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.History(month), s.ledger.Status().PerMonth
}

// Use consumes one pass and returns the recorded entry and the passes left.
func (s *Service) Use(ctx context.Context, reason string) (pass.Entry, pass.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.ledger.Status().Month
	entry, err := s.ledger.UsePass(ctx, reason)
	if s.ledger.Status().Month != before {
		metrics.RolloversTotal.Inc()
	}
	s.publish()
	if err != nil {
		metrics.PassRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		return pass.Entry{}, s.ledger.Status(), err
	}
	metrics.PassesUsedTotal.Inc()
	return entry, s.ledger.Status(), nil
}

// SetQuota changes the monthly quota. It reports whether the change was
// applied now (true) or deferred to the next month (false).
func (s *Service) SetQuota(ctx context.Context, q uint32) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := s.ledger.SetQuota(ctx, q)
	s.publish()
	if err != nil {
		return false, err
	}
	s.log.Info("pass quota updated", zap.Uint32("per_month", q), zap.Bool("deferred", !applied))
	return applied, nil
}

// publish mirrors the ledger into the Prometheus gauges. Caller holds a lock.
func (s *Service) publish() {
	st := s.ledger.Status()
	metrics.PassesRemaining.Set(float64(st.Remaining))
	metrics.PassesPerMonth.Set(float64(st.PerMonth))
	if st.PendingPerMonth != nil {
		metrics.PassesPendingPerMonth.Set(float64(*st.PendingPerMonth))
	} else {
		metrics.PassesPendingPerMonth.Set(-1)
	}
	if s.ledger.Degraded() {
		metrics.LedgerDegraded.Set(1)
	} else {
		metrics.LedgerDegraded.Set(0)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, pass.ErrEmptyReason):
		return "empty_reason"
	case errors.Is(err, pass.ErrReasonTooLong):
		return "reason_too_long"
	case errors.Is(err, pass.ErrNoPassesRemaining):
		return "no_passes_remaining"
	default:
		return "storage"
	}
}
