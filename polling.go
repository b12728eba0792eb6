package tgbot

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/pavelzagorodnyuk/tgbot/internal/botapi/v1"
)

// PollingOptions configures the long polling update listener
type PollingOptions struct {
	// Timeout is how long the Bot API may hold a request open while waiting for updates. A zero timeout means short
	// polling, which is only suitable for testing.
	Timeout time.Duration

	// Limit limits the number of updates received at once. Values between 1 and 100 are accepted, zero means the
	// Bot API default.
	Limit int

	// AllowedUpdates lists the kinds of updates to receive. An empty list means the Bot API default.
	AllowedUpdates []UpdateKind

	// ErrorDelay is a pause before the next request after a failed one. Keep it about a second or less, larger
	// delays make the bot lag.
	ErrorDelay time.Duration
}

const (
	DefaultPollingTimeout = 10 * time.Second
	defaultErrorDelay     = time.Second
	maxPollingLimit       = 100
)

// DefaultPolling creates a long polling update listener with the DefaultPollingTimeout
func DefaultPolling(ctx context.Context, client Client) iter.Seq2[Update, error] {
	return Polling(ctx, client, PollingOptions{
		Timeout:    DefaultPollingTimeout,
		ErrorDelay: defaultErrorDelay,
	})
}

// Polling creates a long polling update listener. The listener requests updates starting from the offset, which is
// zero initially and which is moved past the greatest update identifier of a batch once the whole batch has been
// consumed. Malformed updates move the offset too; they are yielded as *MalformedUpdateError. A failed request is
// yielded as *TransportError and repeated with the same offset.
//
// The sequence is infinite. It ends only when the context is done, when the consumer stops the iteration or after
// an *IntegrityFaultError. It keeps its offset between iterations: ranging over it again continues where the
// previous iteration stopped, and the updates of a batch which was not consumed completely are received again. The
// sequence must not be ranged over concurrently.
//
// A request is sent only after the consumer has taken every update of the previous batch. A request which is in
// progress when the context is done is aborted.
func Polling(ctx context.Context, client Client, options PollingOptions) iter.Seq2[Update, error] {
	p := &poller{
		client:  client,
		options: options,
	}

	return func(yield func(Update, error) bool) {
		p.run(ctx, yield)
	}
}

type poller struct {
	client  Client
	options PollingOptions
	offset  int64
}

func (p *poller) run(ctx context.Context, yield func(Update, error) bool) {
	for ctx.Err() == nil {
		entries, err := p.getUpdates(ctx)
		if err != nil {
			// the request has been aborted, it is not a transport failure
			if ctx.Err() != nil {
				return
			}

			if !yield(Update{}, err) {
				return
			}

			if !p.pause(ctx, err) {
				return
			}
			continue
		}

		nextOffset, err := p.nextOffset(entries)
		if err != nil {
			yield(Update{}, err)
			return
		}

		for _, entry := range entries {
			var isConsumed bool
			if entry.Malformed != nil {
				isConsumed = yield(Update{}, entry.Malformed)
			} else {
				isConsumed = yield(entry.Update, nil)
			}

			if !isConsumed {
				return
			}
		}

		p.offset = nextOffset
	}
}

func (p *poller) getUpdates(ctx context.Context) ([]botapi.UpdateEntry, error) {
	request := botapi.GetUpdatesRequest{
		Offset:         p.offset,
		Limit:          min(max(p.options.Limit, 0), maxPollingLimit),
		Timeout:        timeoutSeconds(p.options.Timeout),
		AllowedUpdates: p.options.AllowedUpdates,
	}

	entries, apiErr, err := p.client.GetUpdates(ctx, request)
	if err != nil {
		return nil, &TransportError{Offset: p.offset, Err: err}
	}
	if apiErr != nil {
		return nil, &TransportError{Offset: p.offset, Err: apiErr}
	}
	return entries, nil
}

// timeoutSeconds converts the timeout to the whole seconds of the Bot API. A fraction of a second is rounded up, so a
// short non-zero timeout never turns into short polling.
func timeoutSeconds(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}
	return int((timeout + time.Second - 1) / time.Second)
}

// nextOffset determines the offset which acknowledges all the entries. The offset never decreases.
func (p *poller) nextOffset(entries []botapi.UpdateEntry) (int64, error) {
	nextOffset := p.offset

	for _, entry := range entries {
		updateId, err := entry.UpdateId()
		if err != nil {
			faultErr := &IntegrityFaultError{Offset: p.offset, Err: err}
			if entry.Malformed != nil {
				faultErr.Raw = entry.Malformed.Raw
			}
			return 0, faultErr
		}

		nextOffset = max(nextOffset, updateId+1)
	}
	return nextOffset, nil
}

// pause waits before the next request after a failed one. It honors the retry delay requested by the Bot API. It
// returns false if the context is done during the pause.
func (p *poller) pause(ctx context.Context, err error) bool {
	delay := p.options.ErrorDelay

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Parameters != nil {
		delay = max(delay, time.Duration(apiErr.Parameters.RetryAfter)*time.Second)
	}

	if delay <= 0 {
		return true
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true

	case <-ctx.Done():
		return false
	}
}
