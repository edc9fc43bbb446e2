package domain

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindExtraction         Kind = "extraction_error"
	KindNoExtractableText  Kind = "no_extractable_text"
	KindEmbedding          Kind = "embedding_error"
	KindIndexAllocation    Kind = "index_allocation_error"
	KindIndexNotFound      Kind = "index_not_found"
	KindInvariantViolation Kind = "invariant_violation"
	KindInvalidState       Kind = "invalid_state"
	KindGeneration         Kind = "generation_error"
	KindInternal           Kind = "internal"
)

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so that the
// sentinels below match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrExtraction         = &Error{Kind: KindExtraction}
	ErrNoExtractableText  = &Error{Kind: KindNoExtractableText}
	ErrEmbedding          = &Error{Kind: KindEmbedding}
	ErrIndexAllocation    = &Error{Kind: KindIndexAllocation}
	ErrIndexNotFound      = &Error{Kind: KindIndexNotFound}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
	ErrInvalidState       = &Error{Kind: KindInvalidState}
	ErrGeneration         = &Error{Kind: KindGeneration}
)

// Errorf builds a classified error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
