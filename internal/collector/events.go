package collector

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/engine"
	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/logger"
)

const (
	reconnectInitialDelay = 500 * time.Millisecond
	reconnectMaxDelay     = 30 * time.Second

	// A stream that stayed up this long resets the reconnect backoff.
	stableStreamWindow = time.Minute
)

// Event actions after which the metrics are stale until the next poll.
var (
	containerRefreshActions = map[string]struct{}{
		"start":   {},
		"die":     {},
		"oom":     {},
		"restart": {},
		"pause":   {},
		"unpause": {},
		"destroy": {},
	}
	serviceRefreshActions = map[string]struct{}{
		"create": {},
		"update": {},
		"remove": {},
	}
)

// WatchEvents subscribes to runtime events and calls notify for every event
// that changes what a poll would report. The stream is reopened with capped
// exponential backoff until ctx is canceled.
func WatchEvents(ctx context.Context, source EventSource, metrics *Metrics, notify func()) {
	loggerInstance := logger.L()

	reconnectBackoff := backoff.NewExponentialBackOff()
	reconnectBackoff.InitialInterval = reconnectInitialDelay
	reconnectBackoff.MaxInterval = reconnectMaxDelay
	reconnectBackoff.Reset()

	for ctx.Err() == nil {
		stream, streamErrors := source.Events(ctx)
		connectedAt := time.Now()

		loggerInstance.Info("event stream connected")

		streamErr := pumpEvents(ctx, stream, streamErrors, notify)
		if ctx.Err() != nil {
			break
		}

		if time.Since(connectedAt) > stableStreamWindow {
			reconnectBackoff.Reset()
		}

		metrics.IncEventReconnect()

		delay := reconnectBackoff.NextBackOff()
		loggerInstance.Warn("event stream ended; reconnecting", "in", delay, "err", streamErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	loggerInstance.Debug("event watcher: context canceled")
}

// pumpEvents forwards relevant events until the stream ends.
func pumpEvents(
	ctx context.Context,
	stream <-chan engine.Event,
	streamErrors <-chan error,
	notify func(),
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-stream:
			if !ok {
				select {
				case streamErr := <-streamErrors:
					return streamErr
				default:
					return engine.ErrEventsStreamClosed
				}
			}

			if !refreshesMetrics(event) {
				continue
			}

			logger.L().Debug("runtime event", "type", event.Type, "action", event.Action, "name", event.Name)
			notify()
		case streamErr := <-streamErrors:
			if streamErr == nil {
				streamErr = errors.New("event stream ended without error")
			}

			return streamErr
		}
	}
}

func refreshesMetrics(event engine.Event) bool {
	switch event.Type {
	case "container":
		_, ok := containerRefreshActions[event.Action]

		return ok
	case "service":
		_, ok := serviceRefreshActions[event.Action]

		return ok
	default:
		return false
	}
}
