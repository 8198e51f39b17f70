package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "Currently open WebSocket connections per channel.",
	}, []string{"channel"})

	framesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_frames_received_total",
		Help: "Inbound frames per channel and source tag.",
	}, []string{"channel", "source"})

	frameErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_frame_errors_total",
		Help: "Frames that failed handling per channel.",
	}, []string{"channel"})

	authRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_auth_rejections_total",
		Help: "Connection attempts rejected at the authentication gate.",
	})
)
