package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "gitdb"

	metricLabelOperation = "operation"
	metricLabelHandler   = "handler"
	metricLabelStatus    = "status"
	metricLabelSource    = "source"
)

// Metrics is the structure that holds all prometheus metrics
var (
	// StoreOperationCounter count the number of store operations by outcome
	StoreOperationCounter = newCounterVec(
		"store_operation_count",
		"Count of record store operations",
		metricLabelOperation, metricLabelStatus,
	)
	// StoreOperationDuration observe the duration of store operations
	StoreOperationDuration = newSummaryVec(
		"store_operation_duration_seconds",
		"Seconds to load, mutate and commit a document",
		metricLabelOperation, metricLabelStatus,
	)
	// SnapshotsCreatedCounter count the number of snapshots written
	SnapshotsCreatedCounter = newCounterVec(
		"snapshots_created_count",
		"Number of snapshots recorded after a mutation",
		metricLabelOperation,
	)
	// SnapshotCommitFailedCounter count documents written without a snapshot
	SnapshotCommitFailedCounter = newCounterVec(
		"snapshot_commit_failed_count",
		"Number of documents that were written but could not be committed",
	)
	// ServiceRequestCounter count the number of requests for each service function
	ServiceRequestCounter = newCounterVec(
		"service_request_count",
		"Count of requests for each handler",
		metricLabelHandler, metricLabelStatus, metricLabelSource,
	)
	// ServiceRequestDuration observe the duration of requests for each service function
	ServiceRequestDuration = newSummaryVec(
		"service_request_duration_seconds",
		"Seconds to unmarshal requests, execute a service function and marshal its reponses",
		metricLabelHandler, metricLabelStatus, metricLabelSource,
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}
