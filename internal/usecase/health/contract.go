package health

import "context"

// StoragePinger checks that the pass record's backing store is reachable.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// LedgerState reports whether the last ledger write failed.
type LedgerState interface {
	Degraded() bool
}

// ScannerState reports whether a Bluetooth adapter is present.
type ScannerState interface {
	Available() bool
}
