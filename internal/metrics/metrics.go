// Package metrics holds the process-wide prometheus instruments, exposed on
// /metrics by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "polyculture",
		Name:      "active_connections",
		Help:      "Currently open websocket connections.",
	})
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "polyculture",
		Name:      "active_rooms",
		Help:      "Rooms currently registered.",
	})
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "polyculture",
		Name:      "games_started_total",
		Help:      "Game sessions started.",
	})
	GamesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "polyculture",
		Name:      "games_completed_total",
		Help:      "Game sessions that reached the final round.",
	})
	AnswersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "polyculture",
		Name:      "answers_submitted_total",
		Help:      "Answers accepted during active rounds.",
	})
	QuestionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "polyculture",
		Name:      "question_fallbacks_total",
		Help:      "Times a question fetch degraded to the built-in set.",
	})
)
