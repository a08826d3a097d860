// Package metrics defines the Prometheus metrics of the payroll engine.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_runs_total",
			Help: "Processing runs by outcome.",
		},
		[]string{"outcome"},
	)

	EmployeesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_employees_total",
			Help: "Employees computed by processing runs, by result.",
		},
		[]string{"result"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payroll_run_duration_seconds",
			Help:    "Duration of processing runs in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ComplianceIssuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_compliance_issues_total",
			Help: "Compliance issues found on payroll entries.",
		},
		[]string{"code", "severity"},
	)

	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_alerts_total",
			Help: "Alerts emitted, by kind and severity.",
		},
		[]string{"kind", "severity"},
	)
)

// Collectors returns all collectors of the engine.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{RunsTotal, EmployeesTotal, RunDuration, ComplianceIssuesTotal, AlertsTotal}
}

// Register registers the metrics with reg. Collectors that are already
// registered are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		err := reg.Register(c)

		var are prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &are) {
			return err
		}
	}

	return nil
}

// Push sends the current values to a Prometheus Pushgateway.
func Push(url, job string) error {
	pusher := push.New(url, job)
	for _, c := range Collectors() {
		pusher = pusher.Collector(c)
	}

	if err := pusher.Push(); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
