package ledgerhttp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-ledger/internal/idempotency"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// requestError is a client error raised before reaching the ledger.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

var errRateLimited = &requestError{status: http.StatusTooManyRequests, message: "rate limit exceeded"}

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func unprocessable(format string, args ...any) error {
	return &requestError{status: http.StatusUnprocessableEntity, message: fmt.Sprintf(format, args...)}
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.Is(err, httpx.ErrEmptyBody), errors.Is(err, httpx.ErrMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrStaleReference),
		errors.Is(err, ledger.ErrAlreadyReversed),
		errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, ledger.ErrDuplicateCode),
		errors.Is(err, idempotency.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrVoucherNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrMappingNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("ledger api", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Fail(w, status, "internal error")
		return
	}
	httpx.Fail(w, status, err.Error())
}

// validate runs struct validation and folds field errors into one 422.
func (h *Handler) validate(v any) error {
	err := h.validator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
	}
	return unprocessable("%s", strings.Join(msgs, "; "))
}

// decode reads and validates a request body.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return err
	}
	return h.validate(dst)
}
