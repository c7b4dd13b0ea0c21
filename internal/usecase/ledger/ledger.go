// Package ledger implements the monthly pass ledger: a bounded quota of
// override passes per calendar month (UTC), consumed with a reason and
// refilled lazily when an operation notices the month has changed.
//
// A Ledger is not safe for concurrent use. Callers wrap it in a single
// exclusive-access guard (see package passes).
package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tether-home/tether/internal/domain"
	"github.com/tether-home/tether/internal/domain/pass"
)

// Ledger owns the pass record of one installation.
type Ledger struct {
	store    RecordStore
	clock    Clock
	log      *zap.Logger
	rec      pass.Record
	degraded bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// LoadOrCreate loads the record from store, or creates and persists a new
// one with quota passes when none exists. An existing record keeps its own
// per_month regardless of quota. A month rollover is applied and persisted
// before returning.
func LoadOrCreate(ctx context.Context, store RecordStore, quota uint32, opts ...Option) (*Ledger, error) {
	if err := pass.ValidateQuota(quota); err != nil {
		return nil, err
	}

	l := &Ledger{
		store: store,
		clock: time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(zap.String("location", store.Location()))

	now := l.clock()
	data, err := store.Read(ctx)
	switch {
	case err == nil:
		rec, derr := pass.UnmarshalRecord(data)
		if derr != nil {
			return nil, domain.NewStorageError(domain.ErrMalformedRecord, domain.OpDecode, store.Location(), derr)
		}
		l.rec = rec
		l.log.Info("pass record loaded",
			zap.String("current_month", rec.CurrentMonth.String()),
			zap.Uint32("remaining", rec.Remaining),
			zap.Uint32("per_month", rec.PerMonth),
		)
	case errors.Is(err, domain.ErrRecordNotFound):
		if err := store.Prepare(ctx); err != nil {
			return nil, err
		}
		l.rec = pass.NewRecord(quota, pass.MonthOf(now))
		if err := l.save(ctx); err != nil {
			return nil, err
		}
		l.log.Info("pass record created",
			zap.String("current_month", l.rec.CurrentMonth.String()),
			zap.Uint32("per_month", quota),
		)
	default:
		if !errors.Is(err, domain.ErrReadFailure) {
			err = domain.NewStorageError(domain.ErrReadFailure, domain.OpRead, store.Location(), err)
		}
		return nil, err
	}

	if l.rollover(now) {
		if err := l.save(ctx); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Remaining returns the passes left in the record's current month.
// It does not check for a rollover, so near a month boundary the value
// may belong to the previous month until the next mutating call.
func (l *Ledger) Remaining() uint32 { return l.rec.Remaining }

// PerMonth returns the active monthly quota.
func (l *Ledger) PerMonth() uint32 { return l.rec.PerMonth }

// PendingPerMonth returns the quota scheduled for the next rollover, or nil.
func (l *Ledger) PendingPerMonth() *uint32 {
	if l.rec.PendingPerMonth == nil {
		return nil
	}
	p := *l.rec.PendingPerMonth
	return &p
}

// CurrentMonth returns the rollover watermark.
func (l *Ledger) CurrentMonth() pass.Month { return l.rec.CurrentMonth }

// Status summarises the current month without checking for a rollover.
func (l *Ledger) Status() pass.Status { return l.rec.Status() }

// Snapshot returns a deep copy of the record.
func (l *Ledger) Snapshot() pass.Record { return l.rec.Clone() }

// Degraded reports whether the last save failed. The in-memory record is
// then ahead of the durable one until a later save succeeds.
func (l *Ledger) Degraded() bool { return l.degraded }

// History returns a copy of the entries recorded for month, in the order
// they were used. Unknown months yield an empty slice.
func (l *Ledger) History(month pass.Month) []pass.Entry {
	entries := l.rec.History[month]
	out := make([]pass.Entry, len(entries))
	copy(out, entries)
	return out
}

// UsePass consumes one pass for reason. The reason is trimmed and must be
// 1 to 500 characters. On success the entry is appended to the current
// month's history and the record is persisted once.
func (l *Ledger) UsePass(ctx context.Context, reason string) (pass.Entry, error) {
	now := l.clock()
	l.rollover(now)

	reason, err := pass.NormalizeReason(reason)
	if err != nil {
		return pass.Entry{}, err
	}
	if l.rec.Remaining == 0 {
		return pass.Entry{}, &pass.NoPassesRemainingError{
			Month: l.rec.CurrentMonth,
			Max:   l.rec.PerMonth,
		}
	}

	entry := pass.Entry{UsedAt: now.UTC(), Reason: reason}
	l.rec.Remaining--
	l.rec.History[l.rec.CurrentMonth] = append(l.rec.History[l.rec.CurrentMonth], entry)

	if err := l.save(ctx); err != nil {
		return pass.Entry{}, err
	}
	l.log.Info("pass used",
		zap.String("month", l.rec.CurrentMonth.String()),
		zap.Uint32("remaining", l.rec.Remaining),
	)
	return entry, nil
}

// SetQuota changes the monthly quota. It applies immediately when no pass
// has been used this month and is otherwise deferred to the next rollover.
// Setting the active quota again cancels a deferred change. The returned
// bool reports whether q is now the active quota.
func (l *Ledger) SetQuota(ctx context.Context, q uint32) (bool, error) {
	rolled := l.rollover(l.clock())

	if err := pass.ValidateQuota(q); err != nil {
		return false, err
	}

	switch {
	case q == l.rec.PerMonth:
		cleared := l.rec.PendingPerMonth != nil
		l.rec.PendingPerMonth = nil
		if cleared || rolled {
			if err := l.save(ctx); err != nil {
				return false, err
			}
		}
		return true, nil
	case l.rec.Remaining == l.rec.PerMonth:
		l.rec.PerMonth = q
		l.rec.Remaining = q
		l.rec.PendingPerMonth = nil
		if err := l.save(ctx); err != nil {
			return false, err
		}
		l.log.Info("quota applied", zap.Uint32("per_month", q))
		return true, nil
	default:
		l.rec.PendingPerMonth = &q
		if err := l.save(ctx); err != nil {
			return false, err
		}
		l.log.Info("quota deferred to next month", zap.Uint32("pending_per_month", q))
		return false, nil
	}
}

// Rollover checks the month boundary and persists the record when it moved.
func (l *Ledger) Rollover(ctx context.Context) (bool, error) {
	if !l.rollover(l.clock()) {
		return false, nil
	}
	if err := l.save(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (l *Ledger) rollover(now time.Time) bool {
	from := l.rec.CurrentMonth
	if !l.rec.RollTo(pass.MonthOf(now)) {
		return false
	}
	l.log.Info("month rolled over",
		zap.String("from", from.String()),
		zap.String("to", l.rec.CurrentMonth.String()),
		zap.Uint32("per_month", l.rec.PerMonth),
	)
	return true
}

func (l *Ledger) save(ctx context.Context) error {
	data, err := pass.MarshalRecord(l.rec)
	if err != nil {
		return domain.NewStorageError(domain.ErrWriteFailure, domain.OpEncode, l.store.Location(), err)
	}
	if err := l.store.Write(ctx, data); err != nil {
		if !errors.Is(err, domain.ErrWriteFailure) {
			err = domain.NewStorageError(domain.ErrWriteFailure, domain.OpWrite, l.store.Location(), err)
		}
		l.degraded = true
		l.log.Error("failed to persist pass record", zap.Error(err))
		return err
	}
	if l.degraded {
		l.log.Info("pass record persisted again after failure")
		l.degraded = false
	}
	return nil
}
