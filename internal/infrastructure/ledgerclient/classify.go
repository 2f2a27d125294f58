package ledgerclient

import (
	"strings"

	errs "github.com/teleport-bridge/teleportd/pkg/errors"
)

// convergedPatterns are the ledger rejection messages that mean another
// oracle (or an earlier retry of this one) already applied the same state
// transition. They are classified as success: this is what makes
// multi-oracle submission idempotent.
var convergedPatterns = []string{
	"Already marked as claimed",
	"Oracle has already approved",
	"already completed",
}

// resourcePatterns mark metered-capacity exhaustion on the ledger chain.
var resourcePatterns = []string{
	"resource exceeded",
	"cpu usage exceeded",
	"net usage exceeded",
	"ram exceeded",
}

// IsConverged reports whether the error means the intended state already
// exists on the ledger.
func IsConverged(err error) bool {
	if err == nil {
		return false
	}
	msg := errorMessage(err)
	for _, pattern := range convergedPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsResourceExceeded reports whether the error is a metered-capacity
// rejection that the resource guard should react to before a retry.
func IsResourceExceeded(err error) bool {
	if err == nil {
		return false
	}
	if typed, ok := err.(errs.Error); ok &&
		typed.Category() == errs.CategoryResourceExceeded {
		return true
	}
	msg := strings.ToLower(errorMessage(err))
	for _, pattern := range resourcePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsRejection reports whether the ledger refused the transition for good:
// retrying the identical submission can never succeed.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}
	typed, ok := err.(errs.Error)
	if !ok {
		return false
	}
	return typed.Category() == errs.CategoryRejected ||
		typed.Category() == errs.CategoryUnauthorized
}

func errorMessage(err error) string {
	if typed, ok := err.(errs.Error); ok {
		return typed.Message()
	}
	return err.Error()
}
