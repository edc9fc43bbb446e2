package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Errorf(KindIndexNotFound, "query", "index %q", "documents_1")
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("errors.Is(%v, ErrIndexNotFound) = false", err)
	}
	if errors.Is(err, ErrInvalidState) {
		t.Fatalf("errors.Is(%v, ErrInvalidState) = true", err)
	}

	wrapped := fmt.Errorf("create prompt: %w", err)
	if !errors.Is(wrapped, ErrIndexNotFound) {
		t.Fatalf("wrapped error lost its kind")
	}
	if got := KindOf(wrapped); got != KindIndexNotFound {
		t.Errorf("KindOf = %q, want %q", got, KindIndexNotFound)
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("KindOf = %q, want %q", got, KindInternal)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindEmbedding, "embed", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindInvalidState}, "invalid_state"},
		{&Error{Kind: KindInvalidState, Op: "retrieve"}, "retrieve: invalid_state"},
		{&Error{Kind: KindEmbedding, Err: errors.New("model offline")}, "embedding_error: model offline"},
		{&Error{Kind: KindEmbedding, Op: "embed", Err: errors.New("model offline")}, "embed: embedding_error: model offline"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	m := Metadata{Source: "patent.pdf", Page: "3"}
	if got := MetadataFromMap(m.Map()); got != m {
		t.Errorf("MetadataFromMap(Map()) = %+v, want %+v", got, m)
	}
}
