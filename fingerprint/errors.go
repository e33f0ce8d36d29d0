package fingerprint

import (
	"errors"
	"fmt"
)

// ErrEmptyFingerprint is returned when a zero-length fingerprint is passed to
// scoring. A record that cannot be compared should be excluded from clustering
// and reported, never silently dropped.
var ErrEmptyFingerprint = errors.New("fingerprint: empty fingerprint")

// MalformedFingerprintError reports a raw fingerprint that could not be
// decoded. Callers should skip or flag the offending record rather than abort
// the whole batch.
type MalformedFingerprintError struct {
	Reason string
	Err    error
}

func (e *MalformedFingerprintError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fingerprint: malformed fingerprint: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("fingerprint: malformed fingerprint: %s", e.Reason)
}

func (e *MalformedFingerprintError) Unwrap() error {
	return e.Err
}
