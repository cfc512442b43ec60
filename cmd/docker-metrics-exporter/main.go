// Package main wires and runs the exporter binary.
// It owns configuration loading, logging setup, and the HTTP server with timeouts.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/collector"
	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/config"
	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/engine"
	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/logger"
	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/server"
)

const (
	startupPingTimeout  = 5 * time.Second
	httpShutdownTimeout = 10 * time.Second
	healthTickInterval  = 5 * time.Second
)

func main() {
	os.Exit(run())
}

// run contains the full program logic and returns an exit code, so that
// deferred cleanups run before the process exits.
func run() int {
	cfg, loadErr := config.Load(filepath.Base(os.Args[0]), os.Args[1:], os.Stdout)
	if errors.Is(loadErr, pflag.ErrHelp) {
		return 0
	}

	if loadErr != nil {
		_, _ = fmt.Fprintln(os.Stderr, loadErr)

		return 2
	}

	logger.Configure(cfg.LogFormat, cfg.LogLevel, cfg.LogTime)
	loggerInstance := logger.L()

	loggerInstance.Info("docker-metrics-exporter starting",
		"version", version,
		"commit", commit,
		"date", date,
		"listen_addr", cfg.ListenAddr,
		"poll_delay", cfg.PollDelay,
	)

	metrics := collector.NewMetrics(collector.BuildInfo{Version: version, Commit: commit, Date: date})
	health := collector.NewHealth()

	rootContext, cancelRoot := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancelRoot()

	docker, dockerErr := engine.NewDocker(engine.Options{
		Host:               cfg.DockerHost,
		InspectConcurrency: cfg.InspectConcurrency,
		IncludeStopped:     cfg.IncludeStopped,
	})
	if dockerErr != nil {
		loggerInstance.Error("docker client init failed", "err", dockerErr)

		return 1
	}

	defer func() {
		closeErr := docker.Close()
		if closeErr != nil {
			loggerInstance.Warn("docker client close", "err", closeErr)
		}
	}()

	// An unreachable daemon is not fatal: the poller retries with backoff.
	pingContext, cancelPing := context.WithTimeout(rootContext, startupPingTimeout)
	pingErr := docker.Ping(pingContext)

	cancelPing()

	if pingErr != nil {
		loggerInstance.Warn("docker daemon not reachable yet", "err", pingErr)
	}

	poller := collector.NewPoller(docker, metrics, health, collector.PollerOptions{
		PollDelay:    cfg.PollDelay,
		QueryTimeout: cfg.QueryTimeout,
		MaxBackoff:   cfg.MaxBackoff,
		PruneStale:   cfg.PruneStale,
	})

	var workerGroup sync.WaitGroup

	startWorker(&workerGroup, func() { poller.Run(rootContext) })

	if cfg.WatchEvents {
		startWorker(&workerGroup, func() {
			collector.WatchEvents(rootContext, docker, metrics, poller.Nudge)
		})
	}

	startWorker(&workerGroup, func() {
		runHealthUpdater(rootContext, metrics, health, cfg.PollDelay)
	})

	isHealthy := func() (bool, string) {
		return health.Snapshot(cfg.PollDelay, time.Now())
	}
	httpMux := server.NewMux(metrics.Gatherer(), isHealthy)

	exitCode := 0

	runError := runHTTPServer(rootContext, cfg.ListenAddr, httpMux)
	if runError != nil && !errors.Is(runError, http.ErrServerClosed) {
		loggerInstance.Error("http server error", "err", runError)

		exitCode = 1
	}

	// A listener failure must stop the workers too.
	cancelRoot()
	workerGroup.Wait()

	loggerInstance.Info("docker-metrics-exporter stopped")

	return exitCode
}

func startWorker(waitGroup *sync.WaitGroup, work func()) {
	waitGroup.Add(1)

	go func() {
		defer waitGroup.Done()

		work()
	}()
}

// runHealthUpdater keeps the health gauge current between polls, so a stuck
// poll still turns it to 0.
func runHealthUpdater(
	parentContext context.Context,
	metrics *collector.Metrics,
	health *collector.Health,
	pollDelay time.Duration,
) {
	ticker := time.NewTicker(healthTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-parentContext.Done():
			return
		case now := <-ticker.C:
			healthy, _ := health.Snapshot(pollDelay, now)
			metrics.SetExporterHealth(healthy)
		}
	}
}

func runHTTPServer(parentContext context.Context, address string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errorChannel := make(chan error, 1)

	go func() {
		logger.L().Info("serving metrics", "addr", address)

		errorChannel <- httpServer.ListenAndServe()
	}()

	var resultError error

	select {
	case resultError = <-errorChannel:
	case <-parentContext.Done():
	}

	// The parent is usually canceled by now; shutdown gets its own deadline.
	shutdownContext, shutdownCancel := context.WithTimeout(
		context.WithoutCancel(parentContext),
		httpShutdownTimeout,
	)
	defer shutdownCancel()

	shutdownErr := httpServer.Shutdown(shutdownContext)
	if shutdownErr != nil {
		logger.L().Warn("HTTP server shutdown", "err", shutdownErr)
	}

	return resultError
}
