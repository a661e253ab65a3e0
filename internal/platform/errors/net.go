package errors

// Network-specific helpers for classifying transport failures from the target
// endpoint into project ErrorCodes and retry semantics

import (
	"context"
	stderrs "errors"
	"net"
	"strings"
	"syscall"
)

// IsTimeout reports whether the root cause is a network timeout
func IsTimeout(err error) bool {
	var ne net.Error
	return stderrs.As(err, &ne) && ne.Timeout()
}

// IsDNSFailure reports whether the root cause is a name resolution failure
func IsDNSFailure(err error) bool {
	var de *net.DNSError
	return stderrs.As(err, &de)
}

// IsConnReset reports whether the connection was reset or refused by the peer
func IsConnReset(err error) bool {
	if stderrs.Is(err, syscall.ECONNRESET) || stderrs.Is(err, syscall.ECONNREFUSED) ||
		stderrs.Is(err, syscall.EPIPE) {
		return true
	}
	// net/http wraps transport errors in *url.Error with free text; cover the
	// shapes the stdlib emits that do not carry a syscall errno
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "connection reset by peer"),
		strings.Contains(s, "connection refused"),
		strings.Contains(s, "broken pipe"),
		strings.Contains(s, "unexpected eof"),
		strings.Contains(s, "server closed idle connection"):
		return true
	}
	return false
}

// IsTransientNetwork reports whether a transport error is worth retrying.
// Local cancellations are never transient; the caller decided to stop
func IsTransientNetwork(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	root := Root(err)
	return IsTimeout(root) || IsDNSFailure(root) || IsConnReset(root)
}

// FromNetwork wraps a transport error with the matching ErrorCode.
// Timeouts, resets, and DNS failures become Unavailable (retryable);
// cancellations pass through untouched so ctx.Err() checks keep working
func FromNetwork(err error, msg string) error {
	if err == nil {
		return nil
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsTransientNetwork(err) {
		return Wrap(err, ErrorCodeUnavailable, msg)
	}
	return Wrap(err, ErrorCodeUnknown, msg)
}
