/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"github.com/Seednode/cursorparty/room"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	sessions         prometheus.Gauge
	reactionsEmitted prometheus.Counter
	reactionsRecv    prometheus.Counter
	droppedMessages  prometheus.Counter
	roomsCreated     prometheus.Counter
	roomsRemoved     prometheus.Counter
}

func newMetrics(rooms *room.Manager) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cursorparty",
			Name:      "sessions_active",
			Help:      "Connected cursor sessions.",
		}),
		reactionsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cursorparty",
			Name:      "reactions_emitted_total",
			Help:      "Reactions emitted and broadcast by local sessions.",
		}),
		reactionsRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cursorparty",
			Name:      "reactions_received_total",
			Help:      "Reactions received from other participants.",
		}),
		droppedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cursorparty",
			Name:      "client_messages_dropped_total",
			Help:      "Pointer moves superseded by a newer move while rate limited.",
		}),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cursorparty",
			Name:      "rooms_created_total",
			Help:      "Rooms created on first join.",
		}),
		roomsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cursorparty",
			Name:      "rooms_removed_total",
			Help:      "Empty rooms removed after going idle.",
		}),
	}

	activeRooms := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "cursorparty",
		Name:      "rooms_active",
		Help:      "Rooms currently held in memory.",
	}, func() float64 {
		return float64(rooms.Len())
	})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessions,
		m.reactionsEmitted,
		m.reactionsRecv,
		m.droppedMessages,
		m.roomsCreated,
		m.roomsRemoved,
		activeRooms,
	)

	return m
}

func registerMetricsHandler(cfg *Config, m *Metrics, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	logf(cfg, "SERVE: Registered metrics handler at %s/metrics", cfg.prefix)
}
