// Package config loads the exporter settings from flags, environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/logger"
)

// EnvPrefix prefixes every environment variable, e.g. DOCKER_METRICS_POLL_DELAY.
const EnvPrefix = "DOCKER_METRICS"

const (
	keyConfigFile         = "config"
	keyListenAddr         = "listen-addr"
	keyDockerHost         = "docker-host"
	keyPollDelay          = "poll-delay"
	keyQueryTimeout       = "query-timeout"
	keyMaxBackoff         = "max-backoff"
	keyInspectConcurrency = "inspect-concurrency"
	keyIncludeStopped     = "include-stopped"
	keyPruneStale         = "prune-stale"
	keyWatchEvents        = "watch-events"
	keyLogFormat          = "log-format"
	keyLogLevel           = "log-level"
	keyLogTime            = "log-time"

	// MinPollDelay is the smallest accepted poll delay.
	MinPollDelay = time.Second

	defaultListenAddr         = "0.0.0.0:9090"
	defaultPollDelay          = 5 * time.Second
	defaultQueryTimeout       = 10 * time.Second
	defaultMaxBackoff         = time.Minute
	defaultInspectConcurrency = 8
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved exporter configuration.
type Config struct {
	ListenAddr string
	DockerHost string

	PollDelay          time.Duration
	QueryTimeout       time.Duration
	MaxBackoff         time.Duration
	InspectConcurrency int
	IncludeStopped     bool
	PruneStale         bool
	WatchEvents        bool

	LogFormat string
	LogLevel  string
	LogTime   bool
}

// Load parses args (without the program name) and resolves every setting with
// the precedence flag > environment > config file > default. It returns
// pflag.ErrHelp when -h/--help was given; usage is then already written to
// usageOutput.
func Load(programName string, args []string, usageOutput io.Writer) (*Config, error) {
	flags := newFlagSet(programName, usageOutput)

	parseErr := flags.Parse(args)
	if parseErr != nil {
		if errors.Is(parseErr, pflag.ErrHelp) {
			return nil, pflag.ErrHelp
		}

		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, parseErr)
	}

	settings := viper.New()
	settings.SetEnvPrefix(EnvPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	bindErr := settings.BindPFlags(flags)
	if bindErr != nil {
		return nil, fmt.Errorf("bind flags: %w", bindErr)
	}

	configFile := settings.GetString(keyConfigFile)
	if configFile != "" {
		settings.SetConfigFile(configFile)

		readErr := settings.ReadInConfig()
		if readErr != nil {
			return nil, fmt.Errorf("%w: read config file %s: %w", ErrInvalidConfig, configFile, readErr)
		}
	}

	cfg := &Config{
		ListenAddr:         settings.GetString(keyListenAddr),
		DockerHost:         settings.GetString(keyDockerHost),
		PollDelay:          settings.GetDuration(keyPollDelay),
		QueryTimeout:       settings.GetDuration(keyQueryTimeout),
		MaxBackoff:         settings.GetDuration(keyMaxBackoff),
		InspectConcurrency: settings.GetInt(keyInspectConcurrency),
		IncludeStopped:     settings.GetBool(keyIncludeStopped),
		PruneStale:         settings.GetBool(keyPruneStale),
		WatchEvents:        settings.GetBool(keyWatchEvents),
		LogFormat:          strings.ToLower(settings.GetString(keyLogFormat)),
		LogLevel:           strings.ToLower(settings.GetString(keyLogLevel)),
		LogTime:            settings.GetBool(keyLogTime),
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var problems []error

	if cfg.ListenAddr == "" {
		problems = append(problems, fmt.Errorf("%s must not be empty", keyListenAddr))
	}

	if cfg.PollDelay < MinPollDelay {
		problems = append(problems, fmt.Errorf("%s must be >= %s, got %s", keyPollDelay, MinPollDelay, cfg.PollDelay))
	}

	if cfg.QueryTimeout <= 0 {
		problems = append(problems, fmt.Errorf("%s must be positive, got %s", keyQueryTimeout, cfg.QueryTimeout))
	}

	if cfg.MaxBackoff < cfg.PollDelay {
		problems = append(problems, fmt.Errorf("%s (%s) must be >= %s (%s)",
			keyMaxBackoff, cfg.MaxBackoff, keyPollDelay, cfg.PollDelay))
	}

	if cfg.InspectConcurrency <= 0 {
		problems = append(problems, fmt.Errorf("%s must be positive, got %d",
			keyInspectConcurrency, cfg.InspectConcurrency))
	}

	if !logger.ValidFormat(cfg.LogFormat) {
		problems = append(problems, fmt.Errorf("%s must be json, text or plain, got %q", keyLogFormat, cfg.LogFormat))
	}

	if !logger.ValidLevel(cfg.LogLevel) {
		problems = append(problems, fmt.Errorf("%s must be debug, info, warn or error, got %q", keyLogLevel, cfg.LogLevel))
	}

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}

func newFlagSet(programName string, usageOutput io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	flags.SetOutput(usageOutput)
	flags.SortFlags = false

	flags.String(keyConfigFile, "", "Optional config file (yaml, json or toml)")
	flags.String(keyListenAddr, defaultListenAddr, "IP address and port to bind")
	flags.String(keyDockerHost, "", "Docker daemon address; empty uses DOCKER_HOST or the default socket")
	flags.Duration(keyPollDelay, defaultPollDelay,
		"Pause between the end of one poll and the start of the next (Go duration). Minimum 1s.")
	flags.Duration(keyQueryTimeout, defaultQueryTimeout, "Timeout for each domain's runtime queries")
	flags.Duration(keyMaxBackoff, defaultMaxBackoff, "Upper bound of the retry delay after failed polls")
	flags.Int(keyInspectConcurrency, defaultInspectConcurrency, "Parallel container inspects per poll")
	flags.Bool(keyIncludeStopped, false, "Also report stopped containers")
	flags.Bool(keyPruneStale, false, "Drop series of containers and services that disappeared")
	flags.Bool(keyWatchEvents, false, "Poll early when runtime events signal a state change")
	flags.String(keyLogFormat, "plain", "Either json, text or plain")
	flags.String(keyLogLevel, "info", "Either debug, info, warn or error")
	flags.Bool(keyLogTime, false, "Include timestamp in logs")

	flags.Usage = func() {
		_, _ = fmt.Fprintf(usageOutput, "Usage of %s:\n", programName)
		flags.PrintDefaults()
		_, _ = fmt.Fprintf(usageOutput, "\nEvery flag can also be set as %s_<FLAG> (dashes become underscores).\n",
			EnvPrefix)
	}

	return flags
}
