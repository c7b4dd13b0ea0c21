package bluetooth

import (
	"context"
	"testing"
	"time"

	"github.com/tether-home/tether/internal/domain/device"
)

func intp(v int) *int { return &v }

func TestStaticScanner(t *testing.T) {
	s := NewStaticScanner([]device.Device{
		{Address: "AA:BB:CC:DD:EE:FF", Name: "Pixel", RSSI: intp(-48)},
		{Address: "11:22:33:44:55:66", Name: "Speaker"},
	})
	ctx := context.Background()

	devices, err := s.Scan(ctx, time.Second)
	if err != nil || len(devices) != 2 {
		t.Fatalf("Scan: %v %v", devices, err)
	}

	rssi, err := s.RSSI(ctx, "aa:bb:cc:dd:ee:ff")
	if err != nil || rssi == nil || *rssi != -48 {
		t.Errorf("RSSI known = %v, %v", rssi, err)
	}
	if rssi, _ := s.RSSI(ctx, "11:22:33:44:55:66"); rssi != nil {
		t.Errorf("RSSI without signal = %v", *rssi)
	}
	if rssi, _ := s.RSSI(ctx, "00:00:00:00:00:01"); rssi != nil {
		t.Errorf("RSSI unknown = %v", *rssi)
	}
}

func TestStaticScanner_CanceledContext(t *testing.T) {
	s := NewStaticScanner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Scan(ctx, time.Second); err == nil {
		t.Error("expected error from canceled scan")
	}
	if _, err := s.RSSI(ctx, "AA:BB:CC:DD:EE:FF"); err == nil {
		t.Error("expected error from canceled rssi")
	}
}
