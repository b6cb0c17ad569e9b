package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"foodviz/internal/domain"
)

// Error is a classified backend failure. Kind is one of the domain sentinels
// so callers can branch with errors.Is.
type Error struct {
	Status  int
	Code    string
	Message string
	Field   string
	Kind    error
	cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.cause != nil {
		msg = e.cause.Error()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	switch {
	case e.Status > 0 && e.Code != "":
		return fmt.Sprintf("api: %s (%s, status %d)", msg, e.Code, e.Status)
	case e.Status > 0:
		return fmt.Sprintf("api: %s (status %d)", msg, e.Status)
	default:
		return "api: " + msg
	}
}

// Is matches the classification sentinel.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func (e *Error) Unwrap() error { return e.cause }

// UserMessage is the text safe to show an operator: the backend message when
// present, otherwise fallback.
func (e *Error) UserMessage(fallback string) string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fallback
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field"`
}

func newStatusError(status int, raw []byte) *Error {
	e := &Error{Status: status, Kind: classifyStatus(status)}
	var detail errorResponse
	if len(raw) > 0 && json.Unmarshal(raw, &detail) == nil {
		e.Message = strings.TrimSpace(detail.Message)
		if e.Message == "" {
			e.Message = strings.TrimSpace(detail.Error)
		}
		e.Code = detail.Code
		e.Field = detail.Field
	}
	return e
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return domain.ErrTransient
	case status >= 500:
		return domain.ErrTransient
	default:
		return domain.ErrValidation
	}
}

// transportError wraps failures that never produced a status code. Caller
// cancellation is returned as-is; everything else, including timeouts, is transient.
func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Message: "request timed out", Kind: domain.ErrTransient, cause: err}
	}
	return &Error{Kind: domain.ErrTransient, cause: err}
}

// MessageOf extracts an operator-facing message from any error returned by the client.
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == 0 {
			return fallback
		}
		return apiErr.UserMessage(fallback)
	}
	return fallback
}
