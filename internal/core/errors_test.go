package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorFormatting(t *testing.T) {
	err := ErrProtocol(CodeBadBlockPayload, "counters line is not a JSON object")
	want := "[protocol] BAD_BLOCK_PAYLOAD: counters line is not a JSON object"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := ErrTransport(CodePipeClosed, "pipe closed").WithCause(errors.New("EPIPE"))
	if wrapped.Unwrap() == nil {
		t.Error("WithCause should be visible through Unwrap")
	}
}

func TestErrorsIsMatchesCategoryAndCode(t *testing.T) {
	err := fmt.Errorf("reading stream: %w",
		ErrProtocol(CodeBadBlockPayload, "bad frame json"))

	target := ErrProtocol(CodeBadBlockPayload, "")
	if !errors.Is(err, target) {
		t.Error("errors.Is should match on category+code through wrapping")
	}

	other := ErrProtocol(CodeUnknownMarker, "")
	if errors.Is(err, other) {
		t.Error("errors.Is must not match a different code")
	}
}

func TestMissingPrereqMessage(t *testing.T) {
	err := ErrMissingPrereq("receiver-side frame resolution", "proc_info (crashed process pid)")
	if !IsCategory(err, ErrCatPrereq) {
		t.Errorf("category = %s, want %s", GetCategory(err), ErrCatPrereq)
	}
	if err.Retryable {
		t.Error("missing prerequisite can never be retried")
	}
	if err.Details["missing"] != "proc_info (crashed process pid)" {
		t.Errorf("details = %v", err.Details)
	}
}

func TestRetryability(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrUpload("endpoint unreachable"), true},
		{ErrTransport(CodeSocketUnusable, "bind failed"), true},
		{ErrStorage(CodeSpoolUnwritable, "disk full"), true},
		{ErrProtocol(CodeBadBlockPayload, "garbled"), false},
		{ErrSpawn("fork failed"), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestGetCategoryFallback(t *testing.T) {
	if got := GetCategory(errors.New("opaque")); got != ErrCatInternal {
		t.Errorf("GetCategory(plain error) = %s, want internal", got)
	}
}
