package consent

import (
	"time"

	dErrors "consentd/pkg/domain-errors"
)

// RecordVersion is the schema version stamped on every persisted record.
const RecordVersion = "1.0.0"

// Categories holds the user-controllable cookie categories. Essential is
// absent on purpose: it can never be disabled.
type Categories struct {
	Functional bool `json:"functional"`
	Analytics  bool `json:"analytics"`
	Marketing  bool `json:"marketing"`
}

// Record captures a visitor's cookie consent decision. It is the persisted
// value: category flags, write timestamp, and schema version.
type Record struct {
	Essential  bool   `json:"essential"`
	Functional bool   `json:"functional"`
	Analytics  bool   `json:"analytics"`
	Marketing  bool   `json:"marketing"`
	Timestamp  int64  `json:"timestamp"`
	Version    string `json:"version"`
}

// NewAcceptAll builds a record with every category enabled.
func NewAcceptAll(now time.Time) Record {
	return newRecord(Categories{Functional: true, Analytics: true, Marketing: true}, now)
}

// NewRejectAll builds a record with only the essential category enabled.
func NewRejectAll(now time.Time) Record {
	return newRecord(Categories{}, now)
}

// NewCustom merges caller-chosen categories into a record. Essential stays
// true regardless of input.
func NewCustom(cats Categories, now time.Time) Record {
	return newRecord(cats, now)
}

// NewEssentialOnly is the minimal hardcoded record used by the emergency
// acceptance path. It must not depend on anything that can fail.
func NewEssentialOnly(now time.Time) Record {
	return newRecord(Categories{}, now)
}

func newRecord(cats Categories, now time.Time) Record {
	return Record{
		Essential:  true,
		Functional: cats.Functional,
		Analytics:  cats.Analytics,
		Marketing:  cats.Marketing,
		Timestamp:  now.UnixMilli(),
		Version:    RecordVersion,
	}
}

// Categories returns the user-controllable flags of the record.
func (r Record) Categories() Categories {
	return Categories{Functional: r.Functional, Analytics: r.Analytics, Marketing: r.Marketing}
}

// Validate reports whether the record is complete: essential true, a
// positive timestamp, and a version tag. Anything else is a malformed
// record, never silently returned as partially valid.
func (r Record) Validate() error {
	if !r.Essential {
		return dErrors.New(dErrors.CodeMalformedRecord, "record missing essential flag")
	}
	if r.Timestamp <= 0 {
		return dErrors.New(dErrors.CodeMalformedRecord, "record missing timestamp")
	}
	if r.Version == "" {
		return dErrors.New(dErrors.CodeMalformedRecord, "record missing version")
	}
	return nil
}

// Equal compares category flags and version, ignoring the timestamp. Used
// by idempotence checks where only the decision matters.
func (r Record) Equal(other Record) bool {
	return r.Essential == other.Essential &&
		r.Functional == other.Functional &&
		r.Analytics == other.Analytics &&
		r.Marketing == other.Marketing &&
		r.Version == other.Version
}
