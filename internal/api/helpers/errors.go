package helpers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/illenko/opspages/internal/service"
	"github.com/illenko/opspages/internal/storage"
)

var verboseErrors atomic.Bool

// SetVerboseErrors makes 500 responses carry the underlying error text.
// Enabled in development.
func SetVerboseErrors(v bool) {
	verboseErrors.Store(v)
}

// WriteServiceError maps an error returned by a service or repository to
// its HTTP status. notFound is the message used for a 404.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, storage.ErrInvalidReference):
		WriteError(w, http.StatusBadRequest, "referenced record does not exist")
	case errors.Is(err, storage.ErrInUse):
		WriteError(w, http.StatusConflict, "record is still referenced")
	case errors.Is(err, storage.ErrNotFound):
		WriteError(w, http.StatusNotFound, notFound)
	case errors.Is(err, storage.ErrConflict):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrPageHasNoDate):
		WriteError(w, http.StatusInternalServerError, "Page has no date associated")
	default:
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
		msg := "Internal server error"
		if verboseErrors.Load() {
			msg = err.Error()
		}
		WriteError(w, status, msg)
	}
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
