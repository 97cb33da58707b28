package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "desk_requests_created_total",
		Help: "Requests created, by request type.",
	}, []string{"type"})

	requestActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "desk_request_actions_total",
		Help: "Actions applied to requests, by action and outcome.",
	}, []string{"action", "outcome"})

	requestActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desk_request_action_duration_seconds",
		Help:    "Time to load, apply and persist one action.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	directoryCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "desk_directory_cache_hits_total",
		Help: "Staff directory cache hits.",
	})

	directoryCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "desk_directory_cache_misses_total",
		Help: "Staff directory cache misses.",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "desk_notifications_total",
		Help: "Stage notifications sent to staff, by result.",
	}, []string{"result"})
)

// outcomeLabel classifies an action error for metrics
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return errorKind(err)
}
