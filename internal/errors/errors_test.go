package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestTxnGuardError_Error(t *testing.T) {
	err := New(ErrCategoryInput, CodeInvalidTimestamp, "bad timestamp")
	expected := "[INPUT:INVALID_TIMESTAMP] bad timestamp"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestTxnGuardError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCategoryStorage, CodeUploadFailed, "upload failed", cause)
	expected := "[STORAGE:UPLOAD_FAILED] upload failed: connection refused"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestTxnGuardError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryOutput, CodeWriteFailed, "write", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestTxnGuardError_Is(t *testing.T) {
	err1 := New(ErrCategoryInput, CodeInvalidAmount, "first")
	err2 := New(ErrCategoryInput, CodeInvalidAmount, "second")
	err3 := New(ErrCategoryInput, CodeMissingField, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}

	wrapped := fmt.Errorf("ingest: %w", err1)
	if !errors.Is(wrapped, err2) {
		t.Error("Is should see through fmt wrapping")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryStorage, CodeUploadFailed, true},
		{ErrCategoryStorage, CodeDownloadFailed, true},
		{ErrCategoryStorage, CodeObjectNotFound, false},
		{ErrCategoryInput, CodeInvalidTimestamp, false},
		{ErrCategoryConfiguration, CodeInvalidThreshold, false},
		{ErrCategoryOutput, CodeWriteFailed, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := NewConfigError(CodeInvalidThreshold, "threshold must be positive", nil)
	if GetCategory(err) != ErrCategoryConfiguration {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryConfiguration)
	}
	if GetCode(err) != CodeInvalidThreshold {
		t.Errorf("got %q, want %q", GetCode(err), CodeInvalidThreshold)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-TxnGuardError should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-TxnGuardError should return empty code")
	}
}

func TestCategoryPredicates(t *testing.T) {
	in := fmt.Errorf("load: %w", NewInputError(CodeMissingField, "user_id is empty"))
	if !IsMalformedInput(in) || IsConfiguration(in) {
		t.Error("input error misclassified")
	}
	cfg := NewConfigError(CodeInvalidConfig, "bad", nil)
	if !IsConfiguration(cfg) || IsMalformedInput(cfg) {
		t.Error("config error misclassified")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrCategoryInput, CodeMissingField, "missing")
	detailed := err.WithDetails(map[string]interface{}{"row": 7})

	if detailed.Details["row"] != 7 {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	s := NewStorageError(CodeDownloadFailed, "s3 down", cause)
	if s.Category != ErrCategoryStorage || !errors.Is(s, cause) || !s.Retryable {
		t.Error("NewStorageError mismatch")
	}

	o := NewOutputError("disk full", cause)
	if o.Category != ErrCategoryOutput || o.Code != CodeWriteFailed {
		t.Error("NewOutputError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
