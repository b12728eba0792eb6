package tgbot

import (
	"context"
	"iter"
	"log/slog"
)

// UpdateFilter is a function that decides which updates must be processed and which must be skipped. An update
// matches the filter and must be processed if the filter call for this update returns true.
type UpdateFilter func(Update) bool

// Trace writes every update and every error of the sequence into the default logger at the debug level and passes
// them on unchanged
func Trace(updates iter.Seq2[Update, error]) iter.Seq2[Update, error] {
	return func(yield func(Update, error) bool) {
		for update, err := range updates {
			if err != nil {
				slog.Debug("incoming error", slog.Any("error", err))
			} else {
				slog.Debug("incoming update",
					slog.Int64("update_id", update.Id),
					slog.String("kind", string(update.Kind())))
			}

			if !yield(update, err) {
				return
			}
		}
	}
}

// DiscardErrors passes the error handler every error of the sequence and leaves only updates in it. The handler is
// called before the next item is requested from the underlying sequence.
func DiscardErrors(
	ctx context.Context,
	updates iter.Seq2[Update, error],
	errorHandler ErrorHandler,
) iter.Seq[Update] {
	return func(yield func(Update) bool) {
		for update, err := range updates {
			if err != nil {
				errorHandler.HandleError(ctx, err)
				continue
			}

			if !yield(update) {
				return
			}
		}
	}
}

// LogOutErrors acts like DiscardErrors with an error handler which writes errors into the default logger
func LogOutErrors(ctx context.Context, updates iter.Seq2[Update, error]) iter.Seq[Update] {
	return DiscardErrors(ctx, updates, NewLoggingErrorHandler("an error from the update listener"))
}

// FilterUpdates leaves in the sequence only those updates which match all the filters
func FilterUpdates(updates iter.Seq[Update], filters ...UpdateFilter) iter.Seq[Update] {
	if len(filters) == 0 {
		return updates
	}

	return func(yield func(Update) bool) {
		for update := range updates {
			if !matchesFilters(update, filters) {
				slog.Debug("skipping the update because it does not match the filters",
					slog.Int64("update_id", update.Id))
				continue
			}

			if !yield(update) {
				return
			}
		}
	}
}

func matchesFilters(update Update, filters []UpdateFilter) bool {
	for _, filter := range filters {
		matches := filter(update)
		if !matches {
			return false
		}
	}
	return true
}

// Project strips the updates of their envelopes
func Project(updates iter.Seq[Update]) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for update := range updates {
			if !yield(newEvent(update)) {
				return
			}
		}
	}
}

// Simplify is the default pipeline over an update listener: it traces the updates, logs out errors and projects the
// updates to events
func Simplify(ctx context.Context, updates iter.Seq2[Update, error]) iter.Seq[Event] {
	return Project(LogOutErrors(ctx, Trace(updates)))
}
