package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeStorageError, Message: "quota exceeded"}
		s.Equal("quota exceeded", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeMalformedRecord}
		s.Equal("malformed_record", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("redis connection refused")
		err := &Error{Code: CodeStorageError, Message: "write rejected", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("works with errors.Unwrap", func() {
		inner := errors.New("root cause")
		err := &Error{Code: CodeInternal, Err: inner}
		s.Equal(inner, errors.Unwrap(err))
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "record not found"}
		err2 := &Error{Code: CodeNotFound, Message: "marker not found"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeStorageError}
		err2 := &Error{Code: CodeMalformedRecord}
		s.False(err1.Is(err2))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeStorageError, Message: "original"}
		wrapped := &Error{Code: CodeInternal, Message: "wrapped", Err: inner}
		target := &Error{Code: CodeStorageError}
		s.True(errors.Is(wrapped, target))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesOriginalCode() {
	inner := New(CodeMalformedRecord, "not json")
	wrapped := Wrap(inner, CodeInternal, "read failed")

	s.True(HasCode(wrapped, CodeMalformedRecord))
	s.Equal(CodeMalformedRecord, CodeOf(wrapped))
}

func (s *DomainErrorsSuite) TestWrapForeignError() {
	inner := errors.New("disk full")
	wrapped := Wrap(inner, CodeStorageError, "write rejected")

	s.True(HasCode(wrapped, CodeStorageError))
	s.True(errors.Is(wrapped, inner))
}

func (s *DomainErrorsSuite) TestEscalateOverridesExistingCode() {
	inner := New(CodeMalformedRecord, "missing essential flag")
	escalated := Escalate(inner, CodeLogicFault, "refusing to persist incomplete record")

	s.Equal(CodeLogicFault, CodeOf(escalated))
	s.True(IsFatal(escalated))
	s.True(errors.Is(escalated, inner), "the cause stays reachable")
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Run("finds code through fmt wrapping", func() {
		err := fmt.Errorf("outer: %w", New(CodeDispatchError, "listener failed"))
		s.Equal(CodeDispatchError, CodeOf(err))
	})

	s.Run("defaults to internal for foreign errors", func() {
		s.Equal(CodeInternal, CodeOf(errors.New("plain")))
	})
}

func (s *DomainErrorsSuite) TestIsFatal() {
	s.True(IsFatal(New(CodeLogicFault, "record lost essential flag")))
	s.False(IsFatal(New(CodeStorageError, "quota exceeded")))
	s.False(IsFatal(New(CodeMalformedRecord, "not json")))
	s.False(IsFatal(errors.New("plain")))
}
