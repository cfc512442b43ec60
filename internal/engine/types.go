// Package engine is the read-only adapter between the exporter and the Docker
// Engine API. It flattens Docker's API objects into the few fields the
// collectors classify.
package engine

import "errors"

// ErrRuntimeUnavailable wraps every failure to reach the runtime or to decode
// its response.
var ErrRuntimeUnavailable = errors.New("container runtime unavailable")

// Swarm task states the service classifier compares against.
const (
	TaskStateRunning  = "running"
	TaskStateShutdown = "shutdown"
)

// Container is one container as seen by a single poll.
type Container struct {
	ID           string
	Name         string
	Labels       map[string]string
	Status       string // created|restarting|running|removing|paused|exited|dead
	RestartCount int
	OOMKilled    bool
}

// ContainerListing is the result of one container listing. Incomplete is set
// when a listed container could not be inspected for a reason other than
// removal: its record is missing from Containers even though it still exists.
type ContainerListing struct {
	Containers []Container
	Incomplete bool
}

// Info carries the runtime facts needed to decide whether services are polled.
type Info struct {
	SwarmMember bool // local node state is "active"
	Manager     bool // control plane available; services can be listed
	NodeCount   int
}

// Task is the subset of a Swarm task used for replica counting.
type Task struct {
	DesiredState string
	CurrentState string
}

// Service is one Swarm service with its tasks.
type Service struct {
	ID     string
	Name   string
	Labels map[string]string

	// Replicated is true for replicated-mode services; TargetReplicas is only
	// meaningful then, and nil when the service definition carries no explicit count.
	Replicated     bool
	TargetReplicas *uint64

	Tasks []Task
}

// Event is a runtime event relevant to metric freshness.
type Event struct {
	Type   string // container|service
	Action string
	Name   string
}
