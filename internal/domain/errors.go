package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound signals that no pass record exists yet at the backing location.
	ErrRecordNotFound = errors.New("pass record not found")
	// ErrReadFailure signals that an existing record could not be read.
	ErrReadFailure = errors.New("read failure")
	// ErrMalformedRecord signals a record that does not decode into the expected shape.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrStorageUnavailable signals that the backing location could not be prepared.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrWriteFailure signals a failed write or rename of the record.
	ErrWriteFailure = errors.New("write failure")

	// ErrDeviceNotConfigured signals that no Bluetooth target has been paired.
	ErrDeviceNotConfigured = errors.New("bluetooth device not configured")
	// ErrScannerUnavailable signals that no Bluetooth adapter is available.
	ErrScannerUnavailable = errors.New("bluetooth scanner unavailable")
	// ErrScanFailed signals that a Bluetooth scan was attempted and failed.
	ErrScanFailed = errors.New("bluetooth scan failed")
	// ErrSettingsSave signals that changed settings could not be persisted.
	ErrSettingsSave = errors.New("failed to save settings")
	// ErrOnboardingComplete signals that onboarding was already completed.
	ErrOnboardingComplete = errors.New("onboarding already completed")
)

// Storage operation names used in StorageError.
const (
	OpPrepare = "mkdir"
	OpRead    = "read"
	OpDecode  = "decode"
	OpEncode  = "encode"
	OpWrite   = "write"
	OpRename  = "rename"
	OpGet     = "GET"
	OpSet     = "SET"
)

// StorageError ties a storage failure kind (ErrReadFailure, ErrWriteFailure, ...)
// to the operation, the location it touched and the underlying cause.
// errors.Is matches both the kind and the cause.
type StorageError struct {
	Kind     error
	Op       string
	Location string
	Err      error
}

// NewStorageError builds a StorageError.
func NewStorageError(kind error, op, location string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Location: location, Err: err}
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s", e.Kind, e.Op, e.Location)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Location, e.Err)
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
