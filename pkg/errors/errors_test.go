// Package errors provides custom error types for the application.
// This file contains unit tests for the errors package.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without underlying error",
			err:  New(ErrCodeNotFound, "tester not found"),
			want: "[E1002] tester not found",
		},
		{
			name: "with underlying error",
			err:  Wrap(ErrCodeDBQuery, "query failed", fmt.Errorf("connection reset")),
			want: "[E5002] query failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("disk full")
	err := Wrap(ErrCodeDBQuery, "insert failed", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if New(ErrCodeInternal, "no inner").Unwrap() != nil {
		t.Error("Unwrap() without inner error should return nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeUnsupported, http.StatusNotImplemented},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeDBQuery, http.StatusInternalServerError},
		{ErrCodeDBConnection, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "test")
			if got := err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() for %s = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrCodeValidation, "invalid field").WithDetails("amount must be positive")
	if err.Details != "amount must be positive" {
		t.Errorf("Details = %v, want %q", err.Details, "amount must be positive")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
	}{
		{"ErrInternal", ErrInternal("boom", fmt.Errorf("inner")), ErrCodeInternal},
		{"ErrValidation", ErrValidation("bad input"), ErrCodeValidation},
		{"ErrNotFound", ErrNotFound("purchase"), ErrCodeNotFound},
		{"ErrConflict", ErrConflict("id already mapped"), ErrCodeConflict},
		{"ErrUnauthorized", ErrUnauthorized("no token"), ErrCodeUnauthorized},
		{"ErrForbidden", ErrForbidden("not yours"), ErrCodeForbidden},
		{"ErrUnsupported", ErrUnsupported("reset", "sqlite"), ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestErrNotFoundMessage(t *testing.T) {
	err := ErrNotFound("tester")
	if err.Message != "tester not found" {
		t.Errorf("Message = %q, want %q", err.Message, "tester not found")
	}
}

func TestErrUnsupportedMessage(t *testing.T) {
	err := ErrUnsupported("getRawData", "postgres")
	want := "getRawData is not supported by the postgres backend"
	if err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
}

func TestIsAppError(t *testing.T) {
	if !IsAppError(New(ErrCodeInternal, "x")) {
		t.Error("IsAppError should be true for AppError")
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Error("IsAppError should be false for plain error")
	}
}

func TestAsAppError(t *testing.T) {
	orig := New(ErrCodeConflict, "dup")
	got, ok := AsAppError(orig)
	if !ok || got != orig {
		t.Error("AsAppError should return the original AppError")
	}

	_, ok = AsAppError(fmt.Errorf("plain"))
	if ok {
		t.Error("AsAppError should fail for plain error")
	}
}

func TestHasCode(t *testing.T) {
	err := New(ErrCodeConflict, "dup")
	if !HasCode(err, ErrCodeConflict) {
		t.Error("HasCode should match the error's code")
	}
	if HasCode(err, ErrCodeNotFound) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeConflict) {
		t.Error("HasCode should be false for plain error")
	}
}
