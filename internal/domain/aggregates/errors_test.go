package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesCodeSentinel(t *testing.T) {
	err := fmt.Errorf("save artifact: %w", NewError(CodeConflict, "artifact.save", "version mismatch", nil))
	if !errors.Is(err, ErrCodeConflict) {
		t.Fatalf("errors.Is conflict: want=true got=false (%v)", err)
	}
	if errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("errors.Is not_found: want=false got=true")
	}
	if got := CodeOf(err); got != CodeConflict {
		t.Fatalf("CodeOf: want=%s got=%s", CodeConflict, got)
	}
}

func TestErrorString(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Code: CodeNotFound, Op: "workshop.get", Message: "missing"}, "workshop.get: missing (not_found)"},
		{&Error{Code: CodeInternal, Op: "op"}, "op (internal)"},
		{&Error{Code: CodeRetryable}, "retryable"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error(): want=%q got=%q", tc.want, got)
		}
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}
