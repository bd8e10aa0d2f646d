package consent

import (
	dErrors "consentd/pkg/domain-errors"
)

// Descriptor is the error surface handed from the controller to the
// supervisor. It is created when a consent operation fails, consumed by the
// retry machinery, and discarded on the next successful operation.
type Descriptor struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// DescribeError converts any error into a Descriptor. Recoverability follows
// the domain taxonomy: only logic faults are fatal; storage and parse
// failures can be repaired by a fresh user decision.
func DescribeError(err error) *Descriptor {
	if err == nil {
		return nil
	}
	return &Descriptor{
		Code:        string(dErrors.CodeOf(err)),
		Message:     err.Error(),
		Recoverable: !dErrors.IsFatal(err),
	}
}
