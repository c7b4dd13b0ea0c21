package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tether-home/tether/internal/domain"
	"github.com/tether-home/tether/internal/domain/pass"
)

// memStore is an in-memory RecordStore with failure injection.
type memStore struct {
	data       []byte
	writes     int
	readErr    error
	prepareErr error
	writeErr   error
}

func (m *memStore) Read(context.Context) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.data == nil {
		return nil, domain.ErrRecordNotFound
	}
	return m.data, nil
}

func (m *memStore) Prepare(context.Context) error { return m.prepareErr }

func (m *memStore) Write(_ context.Context, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Location() string { return "mem" }

// stored decodes what was last written.
func (m *memStore) stored(t *testing.T) pass.Record {
	t.Helper()
	rec, err := pass.UnmarshalRecord(m.data)
	if err != nil {
		t.Fatalf("stored record does not decode: %v", err)
	}
	return rec
}

// fakeClock is a settable clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock(year int, month time.Month, day int) *fakeClock {
	return &fakeClock{now: time.Date(year, month, day, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) set(year int, month time.Month, day int) {
	c.now = time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func mustLoad(t *testing.T, s RecordStore, quota uint32, clk *fakeClock) *Ledger {
	t.Helper()
	l, err := LoadOrCreate(context.Background(), s, quota, WithClock(clk.Now))
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	return l
}

func mustUse(t *testing.T, l *Ledger, reason string) pass.Entry {
	t.Helper()
	e, err := l.UsePass(context.Background(), reason)
	if err != nil {
		t.Fatalf("UsePass(%q): %v", reason, err)
	}
	return e
}

func seed(t *testing.T, rec pass.Record) *memStore {
	t.Helper()
	data, err := pass.MarshalRecord(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &memStore{data: data}
}

func u32(v uint32) *uint32 { return &v }

var errDisk = errors.New("no space left on device")
