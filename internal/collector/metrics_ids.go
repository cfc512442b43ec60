package collector

// Metric and label identifiers. The container_* and service_* names are part
// of the public contract with existing dashboards and alerts.

const (
	exporterNamespace = "docker_metrics"
	exporterSubsystem = "exporter"

	containerRestartCountName  = "container_restart_count"
	containerOOMKilledName     = "container_oom_killed"
	containerStatusName        = "container_status"
	serviceRunningReplicasName = "service_running_replicas"
	serviceDesiredReplicasName = "service_desired_replicas"

	// The state label of a state-set carries the metric's own name.
	containerStatusLabel = containerStatusName

	domainContainers = "containers"
	domainServices   = "services"
)

var (
	containerLabelNames = []string{"name", "compose_project", "compose_service"}
	serviceLabelNames   = []string{"service_name", "stack", "swarm_nodes"}
)
