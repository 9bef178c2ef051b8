package voice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voice_bridge",
		Name:      "events_dropped_total",
		Help:      "Events dropped because the host callback fell behind.",
	})

	framesOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_bridge",
		Name:      "frames_out_total",
		Help:      "Outbound 20ms frames by result.",
	}, []string{"result"})

	packetsIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_bridge",
		Name:      "packets_in_total",
		Help:      "Inbound audio packets by result.",
	}, []string{"result"})

	ticks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voice_bridge",
		Name:      "mixer_ticks_total",
		Help:      "Mixer ticks processed.",
	})

	activeSpeakers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voice_bridge",
		Name:      "active_speakers",
		Help:      "Remote participants with buffered audio.",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voice_bridge",
		Name:      "active_sessions",
		Help:      "Running session control loops.",
	})
)
