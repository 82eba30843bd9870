package service

import "github.com/prometheus/client_golang/prometheus"

var (
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "labbot_scheduler_ticks_total",
			Help: "Total number of completed scheduler ticks",
		},
	)
	ticksAborted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "labbot_scheduler_ticks_aborted_total",
			Help: "Ticks aborted because the dedup store was unavailable",
		},
	)
	remindersDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labbot_reminders_dispatched_total",
			Help: "Reminders successfully dispatched",
		},
		[]string{"calendar_id"},
	)
	dispatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labbot_reminder_dispatch_failures_total",
			Help: "Reminder dispatch attempts that failed and will be retried",
		},
		[]string{"calendar_id"},
	)
	fetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labbot_calendar_fetch_failures_total",
			Help: "Calendar feed fetches that failed",
		},
		[]string{"calendar_id"},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal, ticksAborted, remindersDispatched, dispatchFailures, fetchFailures)
}
