package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/logger"
)

const (
	// DefaultPollDelay is the pause between the end of one poll and the next.
	DefaultPollDelay = 5 * time.Second

	defaultQueryTimeout = 10 * time.Second
	defaultMaxBackoff   = time.Minute

	// Bursts of runtime events collapse into one early poll.
	nudgeSettleDelay = 500 * time.Millisecond

	failureBackoffJitter = 0.2
)

// PollerOptions tunes the poll loop.
type PollerOptions struct {
	// PollDelay is slept after a poll completes, so slow polls push later
	// polls back rather than overlapping.
	PollDelay time.Duration
	// QueryTimeout bounds each domain's runtime queries.
	QueryTimeout time.Duration
	// MaxBackoff caps the delay after consecutive failed polls.
	MaxBackoff time.Duration
	// PruneStale deletes series of entities missing from a successful listing.
	// Off by default: vanished entities keep their last values.
	PruneStale bool
}

// PollResult reports one poll. Containers and services are independent
// failure domains: an error in one does not stop the other from updating.
type PollResult struct {
	Containers    int
	Services      int
	ContainersErr error
	ServicesErr   error
}

// Err joins the per-domain errors.
func (result PollResult) Err() error {
	return errors.Join(result.ContainersErr, result.ServicesErr)
}

// Poller is the reconciliation loop: it snapshots the runtime, classifies
// every entity and writes the result into Metrics.
type Poller struct {
	runtime Runtime
	metrics *Metrics
	health  *Health
	options PollerOptions

	nudges chan struct{}

	containerSeries seriesTracker[containerKey]
	serviceSeries   seriesTracker[serviceKey]

	workerNotice sync.Once
}

// NewPoller wires a poller; zero options fall back to the defaults.
func NewPoller(runtime Runtime, metrics *Metrics, health *Health, options PollerOptions) *Poller {
	if options.PollDelay <= 0 {
		options.PollDelay = DefaultPollDelay
	}

	if options.QueryTimeout <= 0 {
		options.QueryTimeout = defaultQueryTimeout
	}

	if options.MaxBackoff < options.PollDelay {
		options.MaxBackoff = max(defaultMaxBackoff, options.PollDelay)
	}

	return &Poller{
		runtime: runtime,
		metrics: metrics,
		health:  health,
		options: options,
		nudges:  make(chan struct{}, 1),
	}
}

// Nudge asks for an early poll. It never blocks; nudges arriving while one is
// pending are merged.
func (poller *Poller) Nudge() {
	select {
	case poller.nudges <- struct{}{}:
	default:
	}
}

// Run polls immediately, then keeps polling until ctx is canceled. A failed
// poll is logged and retried; it never ends the loop.
func (poller *Poller) Run(ctx context.Context) {
	loggerInstance := logger.L()
	loggerInstance.Debug("start polling runtime state", "delay", poller.options.PollDelay)

	failureBackoff := newFailureBackoff(poller.options.PollDelay, poller.options.MaxBackoff)

	for ctx.Err() == nil {
		result := poller.PollOnce(ctx)

		delay := poller.options.PollDelay
		if result.Err() != nil {
			delay = max(delay, failureBackoff.NextBackOff())
		} else {
			failureBackoff.Reset()
		}

		if !poller.wait(ctx, delay) {
			break
		}
	}

	loggerInstance.Debug("polling loop: context canceled")
}

// PollOnce runs one full reconciliation: containers first, then services.
func (poller *Poller) PollOnce(ctx context.Context) PollResult {
	loggerInstance := logger.L()
	startTime := time.Now()

	var result PollResult

	result.Containers, result.ContainersErr = poller.pollContainers(ctx)
	result.Services, result.ServicesErr = poller.pollServices(ctx)

	poller.metrics.ObservePollDuration(time.Since(startTime))
	poller.metrics.IncPolls()

	if result.ContainersErr != nil {
		poller.metrics.IncPollErrors(domainContainers)
		loggerInstance.Error("poll failed", "domain", domainContainers, "err", result.ContainersErr)
	}

	if result.ServicesErr != nil {
		poller.metrics.IncPollErrors(domainServices)
		loggerInstance.Error("poll failed", "domain", domainServices, "err", result.ServicesErr)
	}

	now := time.Now()
	if result.Err() == nil {
		poller.health.MarkPollOK(now)
	}

	healthy, _ := poller.health.Snapshot(poller.options.PollDelay, now)
	poller.metrics.SetExporterHealth(healthy)

	loggerInstance.Debug("poll finished",
		"containers", result.Containers,
		"services", result.Services,
		"took", time.Since(startTime),
	)

	return result
}

func (poller *Poller) pollContainers(ctx context.Context) (int, error) {
	queryContext, cancel := context.WithTimeout(ctx, poller.options.QueryTimeout)
	defer cancel()

	listing, listErr := poller.runtime.ListContainers(queryContext)
	if listErr != nil {
		return 0, fmt.Errorf("list containers: %w", listErr)
	}

	records := listing.Containers
	seen := make(map[containerKey]struct{}, len(records))

	for index := range records {
		snapshot := ClassifyContainer(&records[index])
		poller.metrics.SetContainer(&snapshot)
		seen[snapshot.key()] = struct{}{}
	}

	if !poller.options.PruneStale {
		return len(records), nil
	}

	// Containers that failed to inspect are still running; keep their series.
	if listing.Incomplete {
		poller.containerSeries.retain(seen)
		logger.L().Debug("container listing incomplete; skipping stale series sweep")

		return len(records), nil
	}

	dropped := poller.containerSeries.sweep(seen, poller.metrics.DeleteContainer)
	if dropped > 0 {
		logger.L().Debug("dropped series of vanished containers", "count", dropped)
	}

	return len(records), nil
}

func (poller *Poller) pollServices(ctx context.Context) (int, error) {
	queryContext, cancel := context.WithTimeout(ctx, poller.options.QueryTimeout)
	defer cancel()

	info, infoErr := poller.runtime.Info(queryContext)
	if infoErr != nil {
		return 0, fmt.Errorf("runtime info: %w", infoErr)
	}

	if !info.SwarmMember {
		poller.sweepServices(map[serviceKey]struct{}{})

		return 0, nil
	}

	if !info.Manager {
		poller.workerNotice.Do(func() {
			logger.L().Info("node is a swarm worker; service metrics are only available on managers")
		})

		// A demoted manager can no longer observe services.
		poller.sweepServices(map[serviceKey]struct{}{})

		return 0, nil
	}

	services, listErr := poller.runtime.ListServices(queryContext)
	if listErr != nil {
		return 0, fmt.Errorf("list services: %w", listErr)
	}

	seen := make(map[serviceKey]struct{}, len(services))

	for index := range services {
		snapshot := ClassifyService(&services[index], info.NodeCount)
		poller.metrics.SetService(&snapshot)
		seen[snapshot.key()] = struct{}{}
	}

	poller.sweepServices(seen)

	return len(services), nil
}

func (poller *Poller) sweepServices(seen map[serviceKey]struct{}) {
	if !poller.options.PruneStale {
		return
	}

	dropped := poller.serviceSeries.sweep(seen, poller.metrics.DeleteService)
	if dropped > 0 {
		logger.L().Debug("dropped series of vanished services", "count", dropped)
	}
}

// wait sleeps for delay, returning early on a nudge. It reports false once
// ctx is done.
func (poller *Poller) wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case <-poller.nudges:
	}

	settle := time.NewTimer(nudgeSettleDelay)
	defer settle.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-settle.C:
	}

	// Drop a nudge that arrived while settling; this poll covers it.
	select {
	case <-poller.nudges:
	default:
	}

	logger.L().Debug("early poll requested by runtime event")

	return true
}

func newFailureBackoff(initial, maximum time.Duration) *backoff.ExponentialBackOff {
	failureBackoff := backoff.NewExponentialBackOff()
	failureBackoff.InitialInterval = initial
	failureBackoff.MaxInterval = maximum
	failureBackoff.RandomizationFactor = failureBackoffJitter
	failureBackoff.Reset()

	return failureBackoff
}
