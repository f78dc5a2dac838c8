package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	wipeguard = "wipeguard"

	jobsTotal             = "jobs_total"
	activeJobsCount       = "active_jobs_count"
	safetyRejectionsTotal = "safety_rejections_total"
	auditAppendsTotal     = "audit_appends_total"

	jobStatusLabel    = "status"
	checkNameLabel    = "check"
	appendResultLabel = "result"
)

/**
* Metrics definition
**/
var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: wipeguard,
		Name:      jobsTotal,
		Help:      "number of erase jobs reaching each terminal status",
	},
	[]string{jobStatusLabel},
)

var activeJobsCountMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: wipeguard,
		Name:      activeJobsCount,
		Help:      "number of jobs currently in the active set",
	},
)

var safetyRejectionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: wipeguard,
		Name:      safetyRejectionsTotal,
		Help:      "number of requests rejected by the safety validator, partitioned by failed check",
	},
	[]string{checkNameLabel},
)

var auditAppendsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: wipeguard,
		Name:      auditAppendsTotal,
		Help:      "number of audit trail appends partitioned by outcome",
	},
	[]string{appendResultLabel},
)

func IncreaseJobsTotalMetric(status string) {
	jobsTotalMetric.With(prometheus.Labels{jobStatusLabel: status}).Inc()
}

func UpdateActiveJobsCountMetric(count int) {
	activeJobsCountMetric.Set(float64(count))
}

func IncreaseSafetyRejectionsTotalMetric(check string) {
	safetyRejectionsTotalMetric.With(prometheus.Labels{checkNameLabel: check}).Inc()
}

func IncreaseAuditAppendsTotalMetric(result string) {
	auditAppendsTotalMetric.With(prometheus.Labels{appendResultLabel: result}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(activeJobsCountMetric)
	prometheus.MustRegister(safetyRejectionsTotalMetric)
	prometheus.MustRegister(auditAppendsTotalMetric)
}
