package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckUnavailable marks an optional component that is absent. It does
	// not degrade the overall status.
	CheckUnavailable CheckResult = "unavailable"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	storage StoragePinger
	ledger  LedgerState
	scanner ScannerState
}

// New creates a Service. scanner can be nil.
func New(storage StoragePinger, ledger LedgerState, scanner ScannerState) *Service {
	return &Service{storage: storage, ledger: ledger, scanner: scanner}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.storage.Ping(ctx); err != nil {
		checks["storage"] = CheckError
	} else {
		checks["storage"] = CheckOK
	}

	if s.ledger.Degraded() {
		checks["ledger"] = CheckError
	} else {
		checks["ledger"] = CheckOK
	}

	if s.scanner != nil {
		if s.scanner.Available() {
			checks["bluetooth"] = CheckOK
		} else {
			checks["bluetooth"] = CheckUnavailable
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
