package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind categorizes backend failures. Callers classify on the kind,
// never on message text.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindTimeout covers deadline expiry and cancellation.
	KindTimeout
	// KindNetwork means no HTTP response was obtained.
	KindNetwork
	// KindHTTP is a non-2xx response.
	KindHTTP
	// KindParse is a 2xx response whose body is not what was expected.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// UserNotFoundDetail is the detail the backend sends when the identity
// behind a request no longer exists.
const UserNotFoundDetail = "User not found"

// ErrUserNotFound matches, with errors.Is, any *Error carrying the
// backend's "identity not found" response.
var ErrUserNotFound = errors.New("user not found")

// Error is returned by every Client call that fails.
type Error struct {
	Kind   ErrorKind
	Op     string // "health", "ask" or "conversations"
	Status int    // HTTP status for KindHTTP
	Detail string // server-provided detail for KindHTTP, when parseable
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	switch e.Kind {
	case KindTimeout:
		b.WriteString("request timed out")
	case KindNetwork:
		b.WriteString("network error")
	case KindHTTP:
		fmt.Fprintf(&b, "server error (%d)", e.Status)
		if e.Detail != "" {
			b.WriteString(": ")
			b.WriteString(e.Detail)
		}
	case KindParse:
		b.WriteString("invalid response format")
	default:
		b.WriteString("unknown error")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrUserNotFound) match.
func (e *Error) Is(target error) bool {
	return target == ErrUserNotFound && e.userNotFound()
}

func (e *Error) userNotFound() bool {
	return e.Kind == KindHTTP && e.Status == http.StatusNotFound &&
		strings.EqualFold(strings.TrimSpace(e.Detail), UserNotFoundDetail)
}

// Transient reports whether retrying soon might succeed.
func (e *Error) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindNetwork
}

// KindOf returns the kind of a backend error, or KindUnknown.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err is a timeout or network failure.
func IsTransient(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Transient()
}

// IsUserNotFound reports whether err is the backend's "identity not found"
// response, which invalidates the local session.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// transportError wraps an error returned by http.Client.Do.
func transportError(ctx context.Context, op string, err error) *Error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Op: op, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Op: op, Cause: err}
	}
	return &Error{Kind: KindNetwork, Op: op, Cause: err}
}

// httpError builds a KindHTTP error, extracting a FastAPI-style detail
// (a string, or a list of {msg} objects) from body when possible.
func httpError(op string, status int, body []byte) *Error {
	return &Error{Kind: KindHTTP, Op: op, Status: status, Detail: parseDetail(body)}
}

func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}

	if len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			var msgs []string
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(envelope.Error)
}
