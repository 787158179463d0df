// Package errors defines the JSON envelope the dashboard API answers with.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chocosales-dashboard/internal/observability"
)

type ErrorCode string

const (
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidParam ErrorCode = "INVALID_PARAMETER"
	CodeRateLimit    ErrorCode = "RATE_LIMIT_EXCEEDED"
)

var statusCodes = map[ErrorCode]int{
	CodeInvalidParam: http.StatusBadRequest,
	CodeRateLimit:    http.StatusTooManyRequests,
}

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Param names the query parameter or signal that was rejected.
	Param      string    `json:"param,omitempty"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Param != "" {
		msg += " (" + e.Param + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	status, ok := statusCodes[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Internal hides err behind a generic message. The cause is logged, not sent.
func Internal(err error) *AppError {
	return Wrap(err, CodeInternal, "An unexpected error occurred")
}

// InvalidParam reports a rejected request input. The cause's text is
// returned to the client in Details.
func InvalidParam(param string, err error) *AppError {
	appErr := Wrap(err, CodeInvalidParam, "invalid "+param)
	appErr.Param = param
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

// Respond writes err for request r, tagging it with the request ID from the
// request context. Errors that are not an *AppError become INTERNAL_ERROR and
// their text is never sent to the client.
func Respond(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = Internal(err)
	}
	appErr.RequestID = observability.GetRequestID(r.Context())

	level := slog.LevelError
	if appErr.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(r.Context(), level, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"param", appErr.Param,
		"status_code", appErr.StatusCode,
		"path", r.URL.Path,
		"request_id", appErr.RequestID,
		"cause", appErr.Cause,
	)

	if encodeErr := writeJSON(w, appErr.StatusCode, ErrorResponse{Error: appErr}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"request_id", appErr.RequestID,
		)
	}
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return writeJSON(w, http.StatusOK, SuccessResponse{Data: data, Success: true})
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) error {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	return WriteSuccess(w, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
