package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/client"
	"golang.org/x/sync/errgroup"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/logger"
)

const defaultInspectConcurrency = 8

// ErrEventsStreamClosed is reported when the daemon closes the event stream.
var ErrEventsStreamClosed = errors.New("events stream closed")

// dockerAPI is the slice of *client.Client the adapter calls.
type dockerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	Info(ctx context.Context) (system.Info, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ServiceList(ctx context.Context, options swarm.ServiceListOptions) ([]swarm.Service, error)
	TaskList(ctx context.Context, options swarm.TaskListOptions) ([]swarm.Task, error)
	Events(ctx context.Context, options events.ListOptions) (<-chan events.Message, <-chan error)
	Close() error
}

var _ dockerAPI = (*client.Client)(nil)

// Options configures the Docker adapter.
type Options struct {
	// Host overrides DOCKER_HOST when non-empty (e.g. unix:///var/run/docker.sock).
	Host string
	// InspectConcurrency bounds parallel ContainerInspect calls per poll.
	InspectConcurrency int
	// IncludeStopped lists all containers instead of running ones only.
	IncludeStopped bool
}

// Docker implements the runtime queries on top of the Docker Engine API.
type Docker struct {
	api                dockerAPI
	inspectConcurrency int
	includeStopped     bool
}

// NewDocker builds a client from the environment (DOCKER_HOST, DOCKER_API_VERSION,
// ...) with API version negotiation.
func NewDocker(options Options) (*Docker, error) {
	clientOptions := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if options.Host != "" {
		clientOptions = append(clientOptions, client.WithHost(options.Host))
	}

	dockerClient, err := client.NewClientWithOpts(clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("docker client init: %w", err)
	}

	return newDocker(dockerClient, options), nil
}

func newDocker(api dockerAPI, options Options) *Docker {
	concurrency := options.InspectConcurrency
	if concurrency <= 0 {
		concurrency = defaultInspectConcurrency
	}

	return &Docker{
		api:                api,
		inspectConcurrency: concurrency,
		includeStopped:     options.IncludeStopped,
	}
}

// Close releases the underlying HTTP transport.
func (docker *Docker) Close() error {
	closeErr := docker.api.Close()
	if closeErr != nil {
		return fmt.Errorf("docker client close: %w", closeErr)
	}

	return nil
}

// Ping checks that the daemon answers.
func (docker *Docker) Ping(ctx context.Context) error {
	_, pingErr := docker.api.Ping(ctx)
	if pingErr != nil {
		return fmt.Errorf("%w: ping: %w", ErrRuntimeUnavailable, pingErr)
	}

	return nil
}

// ListContainers lists containers and inspects each one, since restart count,
// OOM flag and detailed state only exist in inspect data. Containers that
// vanish or fail to inspect are skipped, and a failed inspect marks the
// listing incomplete; only a failed listing (or a context that expires
// mid-way) fails the call.
func (docker *Docker) ListContainers(ctx context.Context) (ContainerListing, error) {
	summaries, listErr := docker.api.ContainerList(ctx, container.ListOptions{
		All:  docker.includeStopped,
		Size: false,
	})
	if listErr != nil {
		return ContainerListing{}, fmt.Errorf("%w: container list: %w", ErrRuntimeUnavailable, listErr)
	}

	records := make([]*Container, len(summaries))

	var inspectFailures atomic.Int32

	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(docker.inspectConcurrency)

	for index := range summaries {
		summary := &summaries[index]

		group.Go(func() error {
			details, inspectErr := docker.api.ContainerInspect(groupContext, summary.ID)
			if inspectErr != nil {
				if groupContext.Err() != nil {
					return fmt.Errorf("inspect %s: %w", summary.ID, groupContext.Err())
				}

				if client.IsErrNotFound(inspectErr) {
					logger.L().Debug("container vanished before inspect", "container_id", summary.ID)

					return nil
				}

				logger.L().Warn("container inspect failed; skipping container",
					"container_id", summary.ID, "err", inspectErr,
				)
				inspectFailures.Add(1)

				return nil
			}

			record, ok := containerFromInspect(summary, &details)
			if ok {
				records[index] = &record
			}

			return nil
		})
	}

	waitErr := group.Wait()
	if waitErr != nil {
		return ContainerListing{}, fmt.Errorf("%w: container inspect: %w", ErrRuntimeUnavailable, waitErr)
	}

	listing := ContainerListing{
		Containers: make([]Container, 0, len(records)),
		Incomplete: inspectFailures.Load() > 0,
	}

	for index := range records {
		if records[index] != nil {
			listing.Containers = append(listing.Containers, *records[index])
		}
	}

	return listing, nil
}

// Info reports swarm membership and the cluster node count.
func (docker *Docker) Info(ctx context.Context) (Info, error) {
	systemInfo, infoErr := docker.api.Info(ctx)
	if infoErr != nil {
		return Info{}, fmt.Errorf("%w: info: %w", ErrRuntimeUnavailable, infoErr)
	}

	return Info{
		SwarmMember: systemInfo.Swarm.LocalNodeState == swarm.LocalNodeStateActive,
		Manager:     systemInfo.Swarm.ControlAvailable,
		NodeCount:   systemInfo.Swarm.Nodes,
	}, nil
}

// ListServices lists services and all tasks once, grouping tasks by service.
// It requires a manager node.
func (docker *Docker) ListServices(ctx context.Context) ([]Service, error) {
	services, serviceErr := docker.api.ServiceList(ctx, swarm.ServiceListOptions{
		Filters: filters.Args{},
		Status:  false,
	})
	if serviceErr != nil {
		return nil, fmt.Errorf("%w: service list: %w", ErrRuntimeUnavailable, serviceErr)
	}

	tasks, taskErr := docker.api.TaskList(ctx, swarm.TaskListOptions{Filters: filters.Args{}})
	if taskErr != nil {
		return nil, fmt.Errorf("%w: task list: %w", ErrRuntimeUnavailable, taskErr)
	}

	tasksByService := make(map[string][]Task, len(services))

	for index := range tasks {
		task := &tasks[index]
		tasksByService[task.ServiceID] = append(tasksByService[task.ServiceID], Task{
			DesiredState: string(task.DesiredState),
			CurrentState: string(task.Status.State),
		})
	}

	out := make([]Service, 0, len(services))
	for index := range services {
		out = append(out, serviceFromSwarm(&services[index], tasksByService[services[index].ID]))
	}

	return out, nil
}

// Events streams container and service events until ctx ends or the stream
// fails. The error channel receives at most one value.
func (docker *Docker) Events(ctx context.Context) (<-chan Event, <-chan error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("type", string(events.ContainerEventType))
	filterArgs.Add("type", string(events.ServiceEventType))

	messages, streamErrors := docker.api.Events(ctx, events.ListOptions{Filters: filterArgs})

	out := make(chan Event)
	outErrors := make(chan error, 1)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case streamErr := <-streamErrors:
				outErrors <- fmt.Errorf("%w: events: %w", ErrRuntimeUnavailable, streamErr)

				return
			case message, ok := <-messages:
				if !ok {
					outErrors <- fmt.Errorf("%w: %w", ErrRuntimeUnavailable, ErrEventsStreamClosed)

					return
				}

				select {
				case <-ctx.Done():
					return
				case out <- eventFromMessage(&message):
				}
			}
		}
	}()

	return out, outErrors
}

// --- conversion helpers ---

func containerFromInspect(summary *container.Summary, details *container.InspectResponse) (Container, bool) {
	if details.ContainerJSONBase == nil {
		return Container{}, false
	}

	record := Container{
		ID:           summary.ID,
		Name:         strings.TrimPrefix(details.Name, "/"),
		Labels:       summary.Labels,
		Status:       string(summary.State),
		RestartCount: details.RestartCount,
	}

	if record.Name == "" {
		record.Name = firstContainerName(summary.Names)
	}

	if details.Config != nil && details.Config.Labels != nil {
		record.Labels = details.Config.Labels
	}

	if details.State != nil {
		record.Status = string(details.State.Status)
		record.OOMKilled = details.State.OOMKilled
	}

	return record, true
}

func firstContainerName(names []string) string {
	if len(names) == 0 {
		return ""
	}

	return strings.TrimPrefix(names[0], "/")
}

func serviceFromSwarm(svc *swarm.Service, tasks []Task) Service {
	record := Service{
		ID:     svc.ID,
		Name:   svc.Spec.Name,
		Labels: svc.Spec.Labels,
		Tasks:  tasks,
	}

	if replicated := svc.Spec.Mode.Replicated; replicated != nil {
		record.Replicated = true

		if replicated.Replicas != nil {
			target := *replicated.Replicas
			record.TargetReplicas = &target
		}
	}

	return record
}

func eventFromMessage(message *events.Message) Event {
	return Event{
		Type:   string(message.Type),
		Action: string(message.Action),
		Name:   message.Actor.Attributes["name"],
	}
}
