//nolint:testpackage // needs access to the unexported vectors and keys
package collector

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/engine"
)

func TestClassifyContainer_MissingComposeLabels(t *testing.T) {
	t.Parallel()

	for _, objectLabels := range []map[string]string{nil, {}, {"maintainer": "ops"}} {
		snapshot := ClassifyContainer(&engine.Container{Name: "redis", Labels: objectLabels, Status: "running"})

		if snapshot.ComposeProject != "" || snapshot.ComposeService != "" {
			t.Fatalf("labels %v: got project=%q service=%q, want empty",
				objectLabels, snapshot.ComposeProject, snapshot.ComposeService)
		}
	}
}

func TestClassifyContainer_ComposeLabels(t *testing.T) {
	t.Parallel()

	snapshot := ClassifyContainer(&engine.Container{
		Name: "shop-web-1",
		Labels: map[string]string{
			"com.docker.compose.project": "shop",
			"com.docker.compose.service": "web",
		},
		Status:       "running",
		RestartCount: 4,
	})

	want := ContainerSnapshot{
		Name:           "shop-web-1",
		ComposeProject: "shop",
		ComposeService: "web",
		RestartCount:   4,
		Status:         StatusRunning,
		RawStatus:      "running",
	}
	if snapshot != want {
		t.Fatalf("got %+v want %+v", snapshot, want)
	}
}

func TestClassifyContainer_StatusNormalization(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"restarting": StatusRestarting,
		"running":    StatusRunning,
		"paused":     StatusPaused,
		"exited":     StatusExited,
		"created":    StatusUnknown,
		"dead":       StatusUnknown,
		"removing":   StatusUnknown,
		"Running":    StatusUnknown,
		"":           StatusUnknown,
	}

	for raw, want := range cases {
		snapshot := ClassifyContainer(&engine.Container{Name: "c", Status: raw})
		if snapshot.Status != want {
			t.Fatalf("status %q: got %q want %q", raw, snapshot.Status, want)
		}

		if snapshot.RawStatus != raw {
			t.Fatalf("raw status %q not preserved: %q", raw, snapshot.RawStatus)
		}
	}
}

func TestSetContainer_OOMKilledIsZeroOrOne(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics(BuildInfo{})

	for _, oomKilled := range []bool{true, false} {
		snapshot := ClassifyContainer(&engine.Container{Name: "api", Status: "exited", OOMKilled: oomKilled})
		metrics.SetContainer(&snapshot)

		want := 0.0
		if oomKilled {
			want = 1
		}

		got := testutil.ToFloat64(metrics.containerOOMKilled.WithLabelValues("api", "", ""))
		if got != want {
			t.Fatalf("oom_killed=%v: got %v want %v", oomKilled, got, want)
		}
	}
}

func TestSetContainer_StatusIsOneHot(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics(BuildInfo{})

	snapshot := ClassifyContainer(&engine.Container{Name: "api", Status: "paused"})
	metrics.SetContainer(&snapshot)

	if got := testutil.CollectAndCount(metrics.containerStatus); got != len(containerStatuses) {
		t.Fatalf("series: got %d want %d", got, len(containerStatuses))
	}

	for _, state := range containerStatuses {
		want := 0.0
		if state == StatusPaused {
			want = 1
		}

		got := testutil.ToFloat64(metrics.containerStatus.WithLabelValues("api", "", "", state))
		if got != want {
			t.Fatalf("state %q: got %v want %v", state, got, want)
		}
	}

	// A later poll moves the single active state.
	snapshot = ClassifyContainer(&engine.Container{Name: "api", Status: "running"})
	metrics.SetContainer(&snapshot)

	if got := testutil.ToFloat64(metrics.containerStatus.WithLabelValues("api", "", "", StatusPaused)); got != 0 {
		t.Fatalf("paused should be cleared, got %v", got)
	}

	if got := testutil.ToFloat64(metrics.containerStatus.WithLabelValues("api", "", "", StatusRunning)); got != 1 {
		t.Fatalf("running should be set, got %v", got)
	}
}

func TestSetContainer_UnknownStatusFallsBack(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics(BuildInfo{})

	snapshot := ClassifyContainer(&engine.Container{Name: "job", Status: "dead"})
	metrics.SetContainer(&snapshot)

	if got := testutil.ToFloat64(metrics.containerStatus.WithLabelValues("job", "", "", StatusUnknown)); got != 1 {
		t.Fatalf("unknown state: got %v want 1", got)
	}

	if got := testutil.ToFloat64(metrics.unknownStatusTotal.WithLabelValues("dead")); got != 1 {
		t.Fatalf("unknown status counter: got %v want 1", got)
	}

	if got := testutil.CollectAndCount(metrics.containerStatus); got != len(containerStatuses)+1 {
		t.Fatalf("series while unknown: got %d want %d", got, len(containerStatuses)+1)
	}

	// Once the container is back in a known state the unknown series goes away.
	snapshot = ClassifyContainer(&engine.Container{Name: "job", Status: "running"})
	metrics.SetContainer(&snapshot)

	if got := testutil.CollectAndCount(metrics.containerStatus); got != len(containerStatuses) {
		t.Fatalf("series after recovery: got %d want %d", got, len(containerStatuses))
	}
}

func TestSetContainer_Exposition(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics(BuildInfo{})

	snapshot := ClassifyContainer(&engine.Container{
		Name: "shop-web-1",
		Labels: map[string]string{
			"com.docker.compose.project": "shop",
			"com.docker.compose.service": "web",
		},
		Status:       "running",
		RestartCount: 4,
		OOMKilled:    true,
	})
	metrics.SetContainer(&snapshot)

	expected := `
# HELP container_oom_killed Is the container OOMKilled
# TYPE container_oom_killed gauge
container_oom_killed{compose_project="shop",compose_service="web",name="shop-web-1"} 1
# HELP container_restart_count Number of times a container has been restarted
# TYPE container_restart_count gauge
container_restart_count{compose_project="shop",compose_service="web",name="shop-web-1"} 4
# HELP container_status Container Status
# TYPE container_status gauge
container_status{compose_project="shop",compose_service="web",container_status="exited",name="shop-web-1"} 0
container_status{compose_project="shop",compose_service="web",container_status="paused",name="shop-web-1"} 0
container_status{compose_project="shop",compose_service="web",container_status="restarting",name="shop-web-1"} 0
container_status{compose_project="shop",compose_service="web",container_status="running",name="shop-web-1"} 1
`

	err := testutil.GatherAndCompare(metrics.Gatherer(), strings.NewReader(expected),
		containerOOMKilledName, containerRestartCountName, containerStatusName)
	if err != nil {
		t.Fatal(err)
	}
}

func TestDeleteContainer(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics(BuildInfo{})

	for name, status := range map[string]string{"a": "dead", "b": "running"} {
		snapshot := ClassifyContainer(&engine.Container{Name: name, Status: status})
		metrics.SetContainer(&snapshot)
	}

	metrics.DeleteContainer(containerKey{"a", "", ""})

	if got := testutil.CollectAndCount(metrics.containerRestartCount); got != 1 {
		t.Fatalf("restart series: got %d want 1", got)
	}

	if got := testutil.CollectAndCount(metrics.containerStatus); got != len(containerStatuses) {
		t.Fatalf("status series: got %d want %d", got, len(containerStatuses))
	}
}
