package utils

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cloudx-io/openescrow/core"
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

func (e *httpError) Unwrap() error {
	return e.cause
}

// HTTPError create an error with http status code
func HTTPError(cause error, status int) error {
	return &httpError{
		cause:  cause,
		status: status,
	}
}

// BadRequest convenience method to create http bad request error.
func BadRequest(cause error) error {
	return &httpError{
		cause:  cause,
		status: http.StatusBadRequest,
	}
}

// NotFound convenience method to create http not found error.
func NotFound(cause error) error {
	return &httpError{
		cause:  cause,
		status: http.StatusNotFound,
	}
}

// StatusOf maps an error to its http status. Engine errors map by kind.
func StatusOf(err error) int {
	var he *httpError
	if errors.As(err, &he) {
		return he.status
	}
	if errors.Is(err, core.ErrInvalidAuction) {
		return http.StatusNotFound
	}
	switch core.KindOf(err) {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindAuthorization:
		return http.StatusForbidden
	case core.KindState:
		return http.StatusConflict
	case core.KindFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// HandlerFunc like http.HandlerFunc, but with an error return
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc convert HandlerFunc to http.HandlerFunc
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		status := StatusOf(err)
		if status >= http.StatusInternalServerError {
			slog.Error("api request failed", "path", r.URL.Path, "err", err)
		}
		body := map[string]string{"error": err.Error()}
		if code := core.CodeOf(err); code != "" {
			body["code"] = code
			body["kind"] = string(core.KindOf(err))
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteJSON response object in json format.
func WriteJSON(w http.ResponseWriter, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}
