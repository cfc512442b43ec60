// Package labels reads well-known Docker object labels and warns about label
// values that are likely to blow up metric cardinality.
package labels

import (
	"strings"
	"sync"

	"github.com/CryptoManufaktur-io/cmf-docker-metrics/internal/logger"
)

// Docker label keys the exporter reads.
const (
	ComposeProjectKey = "com.docker.compose.project"
	ComposeServiceKey = "com.docker.compose.service"
	StackNamespaceKey = "com.docker.stack.namespace"
)

const (
	highCardinalitySampleSize = 64
	swarmTaskIDLength         = 25
)

var warnOnce sync.Map // label key -> struct{}

// Lookup returns the value stored under key, or "" when the key (or the whole
// map) is absent. A missing label is never an error.
func Lookup(objectLabels map[string]string, key string) string {
	return objectLabels[key]
}

// MaybeWarnHighCardinality logs a one-time warning per label key if a value
// looks like a UUID, a long hex token or a Swarm task name. It never blocks
// metric emission.
func MaybeWarnHighCardinality(labelKey, labelValue string) {
	if labelValue == "" || !isLikelyHighCardinalityValue(labelValue) {
		return
	}

	if _, loaded := warnOnce.LoadOrStore(labelKey, struct{}{}); loaded {
		return
	}

	logger.L().Warn(
		"label appears high-cardinality; series will churn when the value changes",
		"label", labelKey,
		"sample_value", truncate(labelValue, highCardinalitySampleSize),
	)
}

func truncate(input string, maxLength int) string {
	if len(input) <= maxLength {
		return input
	}

	return input[:maxLength]
}

func isLikelyHighCardinalityValue(value string) bool {
	valueLower := strings.ToLower(value)

	if isUUID(valueLower) {
		return true
	}

	// Raw hex such as a container ID used as a name.
	if len(valueLower) >= 16 && isHexString(valueLower) {
		return true
	}

	// Swarm task containers are named <service>.<slot>.<task id>.
	if index := strings.LastIndexByte(valueLower, '.'); index >= 0 {
		suffix := valueLower[index+1:]
		if len(suffix) == swarmTaskIDLength && isAlphanumeric(suffix) {
			return true
		}
	}

	return false
}

// isUUID matches the 8-4-4-4-12 hex layout.
func isUUID(value string) bool {
	if len(value) != 36 {
		return false
	}

	for _, dash := range []int{8, 13, 18, 23} {
		if value[dash] != '-' {
			return false
		}
	}

	return isHexString(value[0:8]) &&
		isHexString(value[9:13]) &&
		isHexString(value[14:18]) &&
		isHexString(value[19:23]) &&
		isHexString(value[24:36])
}

func isHexString(hexString string) bool {
	for _, ch := range hexString {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}

	return true
}

func isAlphanumeric(text string) bool {
	for _, ch := range text {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'z') {
			return false
		}
	}

	return true
}
