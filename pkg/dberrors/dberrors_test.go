package dberrors

import (
	"errors"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	err := New(CategoryUser, "BAD_INPUT", "page id must not be zero")
	if err.Code != "BAD_INPUT" {
		t.Fatalf("Code = %q, want BAD_INPUT", err.Code)
	}
	if !strings.Contains(err.Error(), "BAD_INPUT") {
		t.Fatalf("Error() = %q, want it to contain the code", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(cause, "DISKIO_WRITE_FAILED", "WritePage", "diskio.Manager")

	if !errors.Is(wrapped, cause) {
		t.Fatalf("errors.Is(wrapped, cause) = false, want true")
	}
	if wrapped.Operation != "WritePage" {
		t.Fatalf("Operation = %q, want WritePage", wrapped.Operation)
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(nil, "X", "op", "comp") != nil {
		t.Fatalf("Wrap(nil, ...) != nil")
	}
}

func TestWrapDBErrorFillsOnlyEmptyFields(t *testing.T) {
	inner := New(CategorySystem, "X", "boom")
	inner.Operation = "AlreadySet"

	wrapped := Wrap(inner, "Y", "NewOperation", "NewComponent")
	if wrapped.Operation != "AlreadySet" {
		t.Fatalf("Operation = %q, want unchanged AlreadySet", wrapped.Operation)
	}
	if wrapped.Component != "NewComponent" {
		t.Fatalf("Component = %q, want NewComponent", wrapped.Component)
	}
}
