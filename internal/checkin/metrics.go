package checkin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_submissions_total",
		Help: "Check-in submissions by outcome.",
	}, []string{"outcome"})

	duplicateRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkin_duplicate_rejections_total",
		Help: "Submissions rejected by the unique (session, student) constraint.",
	})
)
