package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      New(CodeUnknownFormat, "tag 7"),
			expected: "[UNKNOWN_FORMAT] tag 7",
		},
		{
			name:     "with cause",
			err:      Wrap(io.ErrUnexpectedEOF, CodeMalformedFrame, "truncated header"),
			expected: "[MALFORMED_FRAME] truncated header: unexpected EOF",
		},
		{
			name:     "formatted message",
			err:      Newf(CodeInvalidParam, "invalid port: %d", 99999),
			expected: "[INVALID_PARAM] invalid port: 99999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err1 := New(CodeUnknownCommand, "command \"drop\"")
	err2 := New(CodeUnknownCommand, "command \"\"")
	err3 := New(CodeUnknownFormat, "tag 9")

	// 相同错误码应该匹配
	if !errors.Is(err1, err2) {
		t.Error("errors with same code should match")
	}

	// 不同错误码不应该匹配
	if errors.Is(err1, err3) {
		t.Error("errors with different code should not match")
	}

	// 包装后仍然匹配哨兵错误
	wrapped := fmt.Errorf("conn 7: %w", err1)
	if !errors.Is(wrapped, ErrUnknownCommand) {
		t.Error("should match sentinel error through fmt wrapping")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	wrapped := Wrap(cause, CodeInternal, "wrapped")

	if errors.Unwrap(wrapped) != cause {
		t.Error("Unwrap should return the cause")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"custom error", New(CodePeerReset, "reset"), CodePeerReset},
		{"wrapped error", Wrap(errors.New("eof"), CodePeerClosed, "read"), CodePeerClosed},
		{"fmt wrapped", fmt.Errorf("x: %w", ErrSlowConsumer), CodeSlowConsumer},
		{"standard error", errors.New("standard"), CodeInternal},
		{"nil error", nil, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsConnectionFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"malformed frame", ErrMalformedFrame, true},
		{"unknown format", Newf(CodeUnknownFormat, "tag %d", 5), true},
		{"unknown command", ErrUnknownCommand, true},
		{"frame too large", ErrFrameTooLarge, true},
		{"peer reset", ErrPeerReset, true},
		{"peer closed", ErrPeerClosed, true},
		{"protocol error", ErrProtocolError, true},
		{"slow consumer", ErrSlowConsumer, true},
		{"rate limited", ErrRateLimited, false},
		{"not found", ErrNotFound, false},
		{"plain error", errors.New("x"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectionFatal(tt.err); got != tt.expected {
				t.Errorf("IsConnectionFatal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsDecodeError(t *testing.T) {
	if !IsDecodeError(Wrap(io.ErrUnexpectedEOF, CodeMalformedFrame, "short")) {
		t.Error("wrapped malformed frame should be a decode error")
	}
	if IsDecodeError(ErrPeerClosed) {
		t.Error("peer closed is not a decode error")
	}
	if !IsDisconnect(ErrPeerClosed) {
		t.Error("peer closed should be a disconnect")
	}
}
