package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	empty := &ValidationError{}
	if empty.HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("unexpected message: %q", got)
	}

	vErr := newValidationError("date", "date is required")
	vErr.add("lieu", "location is required")
	if !vErr.HasErrors() || len(vErr.FieldErrors) != 2 {
		t.Fatalf("expected two field errors, got %v", vErr.FieldErrors)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnauthenticated, "unauthenticated"},
		{fmt.Errorf("%w: admin only", ErrUnauthorized), "unauthorized"},
		{ErrNotFound, "not_found"},
		{ErrConflict, "conflict"},
		{ErrInvalidCredentials, "invalid_credentials"},
		{ErrTokenExpired, "token_expired"},
		{newValidationError("f", "bad"), "validation"},
		{errors.New("boom"), "unexpected"},
	}
	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
