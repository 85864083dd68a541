package metrics

import "time"

// RunCompleted records a successful scheduled run
func RunCompleted(job string, duration time.Duration, finished time.Time) {
	ScheduledRunsTotal.WithLabelValues(job, "completed").Inc()
	ScheduledRunDuration.WithLabelValues(job).Observe(duration.Seconds())
	ScheduledRunLastSuccess.WithLabelValues(job).Set(float64(finished.Unix()))
}

// RunFailed records a scheduled run that returned an error
func RunFailed(job string, duration time.Duration) {
	ScheduledRunsTotal.WithLabelValues(job, "failed").Inc()
	ScheduledRunDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// TenantEvaluated records the outcome of one tenant's usage check
func TenantEvaluated(ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	UsageTenantsEvaluated.WithLabelValues(status).Inc()
}

// Notification records what happened to one threshold notification
func Notification(resource, band, outcome string) {
	UsageNotificationsTotal.WithLabelValues(resource, band, outcome).Inc()
}

// QuotaChecked records an enforcement decision
func QuotaChecked(resource string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	QuotaChecksTotal.WithLabelValues(resource, result).Inc()
}
