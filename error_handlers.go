package tgbot

import (
	"context"
	"log/slog"
)

// ErrorHandler handles errors which are not returned to any caller, e.g. errors of the update listener or failed
// dialogue transitions
type ErrorHandler interface {
	HandleError(ctx context.Context, err error)
}

// ErrorHandlerFunc allows to use ordinary functions as error handlers
type ErrorHandlerFunc func(context.Context, error)

func (f ErrorHandlerFunc) HandleError(ctx context.Context, err error) {
	f(ctx, err)
}

// LoggingErrorHandler writes errors into the default logger
type LoggingErrorHandler struct {
	message string
}

// NewLoggingErrorHandler creates an error handler which logs errors with the message
func NewLoggingErrorHandler(message string) LoggingErrorHandler {
	return LoggingErrorHandler{
		message: message,
	}
}

func (h LoggingErrorHandler) HandleError(ctx context.Context, err error) {
	message := h.message
	if len(message) == 0 {
		message = "an error has occurred"
	}
	slog.ErrorContext(ctx, message, slog.Any("error", err))
}

// IgnoringErrorHandler drops all errors
type IgnoringErrorHandler struct{}

func (IgnoringErrorHandler) HandleError(context.Context, error) {}
