package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"torrentcore/internal/domain"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrentcore",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "torrentcore",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	TorrentsByState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "torrentcore",
		Name:      "torrents",
		Help:      "Number of torrents per lifecycle state.",
	}, []string{"state"})

	DownloadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torrentcore",
		Name:      "download_speed_bytes",
		Help:      "Current aggregate download speed in bytes per second.",
	})

	UploadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torrentcore",
		Name:      "upload_speed_bytes",
		Help:      "Current aggregate upload speed in bytes per second.",
	})

	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torrentcore",
		Name:      "peers_connected",
		Help:      "Total number of peers connected across all torrents.",
	})

	TorrentsAddedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torrentcore",
		Name:      "torrents_added_total",
		Help:      "Total number of torrents admitted into the session.",
	})

	TorrentsRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torrentcore",
		Name:      "torrents_removed_total",
		Help:      "Total number of torrents removed from the session.",
	})

	SnapshotsTakenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torrentcore",
		Name:      "snapshots_taken_total",
		Help:      "Total number of status snapshots taken.",
	})

	WSClientsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torrentcore",
		Name:      "ws_clients_connected",
		Help:      "Number of connected WebSocket status subscribers.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TorrentsByState,
		DownloadSpeedBytes,
		UploadSpeedBytes,
		PeersConnected,
		TorrentsAddedTotal,
		TorrentsRemovedTotal,
		SnapshotsTakenTotal,
		WSClientsConnected,
	)
}

var allStates = []domain.TorrentState{
	domain.StateChecking,
	domain.StateDownloading,
	domain.StateFinished,
	domain.StateSeeding,
	domain.StatePaused,
	domain.StateError,
}

// ObserveStatuses refreshes the session-wide gauges from one status sweep.
// States with no torrents are reset to zero so removed torrents disappear
// from the per-state gauge.
func ObserveStatuses(statuses []domain.TorrentStatus) {
	counts := make(map[domain.TorrentState]int, len(allStates))
	var download, upload int64
	var peers int
	for _, st := range statuses {
		counts[st.State]++
		download += st.DownloadRate
		upload += st.UploadRate
		peers += st.Peers
	}
	for _, state := range allStates {
		TorrentsByState.WithLabelValues(string(state)).Set(float64(counts[state]))
	}
	DownloadSpeedBytes.Set(float64(download))
	UploadSpeedBytes.Set(float64(upload))
	PeersConnected.Set(float64(peers))
}
