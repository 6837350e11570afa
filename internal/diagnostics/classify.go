// Package diagnostics classifies telemetry values into status buckets and
// normalizes raw query values into report units.
package diagnostics

import "fmt"

// Status is an ordinal health label.
type Status string

// Status values. Error rates use healthy/degraded/critical; utilization uses
// healthy/warning/critical.
const (
	StatusUnknown  Status = "unknown"
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// Error-rate and utilization thresholds.
const (
	ErrorRateDegraded   = 0.05
	ErrorRateCritical   = 0.2
	ErrorRateAlertAbove = 0.2

	UtilizationWarning  = 0.8
	UtilizationCritical = 0.9
)

// ErrorRateStatus buckets an error rate in [0,1].
func ErrorRateStatus(rate float64) Status {
	switch {
	case rate < ErrorRateDegraded:
		return StatusHealthy
	case rate < ErrorRateCritical:
		return StatusDegraded
	default:
		return StatusCritical
	}
}

// ErrorRateAlert returns an alert message when rate is strictly above the
// alert threshold. A rate of exactly 0.2 is critical but raises no alert.
func ErrorRateAlert(service string, rate float64) (string, bool) {
	if rate > ErrorRateAlertAbove {
		return fmt.Sprintf("High error rate for %s: %.2f%%", service, rate*100), true
	}
	return "", false
}

// UtilizationStatus buckets a utilization fraction in [0,1].
func UtilizationStatus(fraction float64) Status {
	switch {
	case fraction > UtilizationCritical:
		return StatusCritical
	case fraction > UtilizationWarning:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

func severity(s Status) int {
	switch s {
	case StatusHealthy:
		return 1
	case StatusWarning, StatusDegraded:
		return 2
	case StatusCritical:
		return 3
	default:
		return 0
	}
}

// WorstStatus returns the most severe of statuses, or StatusUnknown when
// there are none.
func WorstStatus(statuses ...Status) Status {
	worst := StatusUnknown
	for _, s := range statuses {
		if severity(s) > severity(worst) {
			worst = s
		}
	}
	return worst
}
