package proximity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tether-home/tether/internal/domain"
	"github.com/tether-home/tether/internal/domain/device"
)

// --- Mocks ---

type mockScanner struct {
	devices []device.Device
	rssi    map[string]int
	err     error
}

func (m *mockScanner) Scan(context.Context, time.Duration) ([]device.Device, error) {
	return m.devices, m.err
}

func (m *mockScanner) RSSI(_ context.Context, address string) (*int, error) {
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.rssi[address]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

type staticTarget device.Target

func (t staticTarget) Target() device.Target { return device.Target(t) }

var phone = staticTarget{Address: "AA:BB:CC:DD:EE:FF", Name: "Pixel", RSSIThreshold: -60}

// --- Tests ---

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		rssi       map[string]int
		wantNearby bool
		wantRSSI   bool
	}{
		{"strong signal", map[string]int{"AA:BB:CC:DD:EE:FF": -45}, true, true},
		{"at threshold", map[string]int{"AA:BB:CC:DD:EE:FF": -60}, true, true},
		{"weak signal", map[string]int{"AA:BB:CC:DD:EE:FF": -75}, false, true},
		{"not seen", map[string]int{}, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(&mockScanner{rssi: tc.rssi}, phone, time.Second)
			fixed := time.Date(2025, 1, 15, 3, 30, 0, 0, time.UTC)
			svc.now = func() time.Time { return fixed }

			p, err := svc.Check(context.Background())
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if p.Nearby != tc.wantNearby {
				t.Errorf("nearby = %v, want %v", p.Nearby, tc.wantNearby)
			}
			if (p.RSSI != nil) != tc.wantRSSI {
				t.Errorf("rssi = %v", p.RSSI)
			}
			if p.Target.Name != "Pixel" || !p.CheckedAt.Equal(fixed) {
				t.Errorf("unexpected result: %+v", p)
			}
		})
	}
}

func TestCheck_NotConfigured(t *testing.T) {
	svc := New(&mockScanner{}, staticTarget{Address: device.UnconfiguredAddress}, time.Second)
	if _, err := svc.Check(context.Background()); !errors.Is(err, domain.ErrDeviceNotConfigured) {
		t.Fatalf("expected ErrDeviceNotConfigured, got %v", err)
	}
}

func TestCheck_NoAdapter(t *testing.T) {
	svc := New(nil, phone, time.Second)
	if svc.Available() {
		t.Error("expected unavailable")
	}
	if _, err := svc.Check(context.Background()); !errors.Is(err, domain.ErrScannerUnavailable) {
		t.Fatalf("expected ErrScannerUnavailable, got %v", err)
	}
	if _, err := svc.Devices(context.Background()); !errors.Is(err, domain.ErrScannerUnavailable) {
		t.Fatalf("expected ErrScannerUnavailable, got %v", err)
	}
}

func TestCheck_ScanFailure(t *testing.T) {
	cause := errors.New("adapter powered off")
	svc := New(&mockScanner{err: cause}, phone, time.Second)

	_, err := svc.Check(context.Background())
	if !errors.Is(err, domain.ErrScanFailed) || !errors.Is(err, cause) {
		t.Fatalf("expected ErrScanFailed wrapping cause, got %v", err)
	}
}

func TestDevices(t *testing.T) {
	rssi := -50
	svc := New(&mockScanner{devices: []device.Device{{Address: "AA:BB:CC:DD:EE:FF", Name: "Pixel", RSSI: &rssi}}}, phone, 5*time.Second)

	res, err := svc.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(res.Devices) != 1 || res.Duration != 5*time.Second || res.ScannedAt.IsZero() {
		t.Errorf("unexpected result: %+v", res)
	}
}
