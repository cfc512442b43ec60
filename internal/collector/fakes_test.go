package collector

import (
	"context"
	"errors"
	"sync"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/engine"
)

var errDaemonDown = errors.New("daemon down")

// fakeRuntime serves canned snapshots and counts queries.
type fakeRuntime struct {
	mu sync.Mutex

	containers    []engine.Container
	incomplete    bool
	containersErr error
	info          engine.Info
	infoErr       error
	services      []engine.Service
	servicesErr   error

	containerCalls int
	serviceCalls   int
}

func (fake *fakeRuntime) ListContainers(context.Context) (engine.ContainerListing, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fake.containerCalls++

	if fake.containersErr != nil {
		return engine.ContainerListing{}, fake.containersErr
	}

	return engine.ContainerListing{
		Containers: append([]engine.Container(nil), fake.containers...),
		Incomplete: fake.incomplete,
	}, nil
}

func (fake *fakeRuntime) Info(context.Context) (engine.Info, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	return fake.info, fake.infoErr
}

func (fake *fakeRuntime) ListServices(context.Context) ([]engine.Service, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fake.serviceCalls++

	if fake.servicesErr != nil {
		return nil, fake.servicesErr
	}

	return append([]engine.Service(nil), fake.services...), nil
}

func (fake *fakeRuntime) setContainers(containers ...engine.Container) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fake.containers = containers
}

func (fake *fakeRuntime) calls() (containers, services int) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	return fake.containerCalls, fake.serviceCalls
}

// fakeEventSource hands out one scripted stream per connection.
type fakeEventSource struct {
	mu          sync.Mutex
	connections int
	scripts     []func(ctx context.Context, out chan<- engine.Event, errs chan<- error)
}

func (fake *fakeEventSource) Events(ctx context.Context) (<-chan engine.Event, <-chan error) {
	fake.mu.Lock()
	index := fake.connections
	fake.connections++
	fake.mu.Unlock()

	out := make(chan engine.Event)
	errs := make(chan error, 1)

	go func() {
		defer close(out)

		if index < len(fake.scripts) {
			fake.scripts[index](ctx, out, errs)

			return
		}

		<-ctx.Done()
	}()

	return out, errs
}

func (fake *fakeEventSource) connectionCount() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	return fake.connections
}
