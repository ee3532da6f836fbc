package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all VitalPages metrics
const namespace = "vitalpages"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo exposes version information as labels (value is always 1)
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// Webhook metrics

var WebhookDeliveriesTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Total number of webhook delivery attempts",
	},
	[]string{"event", "result"}, // result: delivered|retry|failed
)

var WebhookDeliveryDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_delivery_duration_seconds",
		Help:      "Webhook endpoint response time in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"event"},
)

// Plugin queue metrics

var PluginJobsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "plugin_jobs_total",
		Help:      "Total number of plugin jobs by terminal state",
	},
	[]string{"action", "state"}, // state: succeeded|failed|cancelled
)

var PluginQueueDepth = promauto.With(Registry).NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "plugin_queue_depth",
		Help:      "Current number of queued plugin jobs",
	},
)

// Monitoring stream metrics

var MonitorClientsConnected = promauto.With(Registry).NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "monitor_clients_connected",
		Help:      "Current number of connected monitoring WebSocket clients",
	},
)

// Contact form metrics

var ContactSubmissionsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "contact_submissions_total",
		Help:      "Total number of contact form submissions",
	},
	[]string{"result"}, // result: accepted|captcha_failed|invalid
)

// Init registers runtime collectors and stamps version info.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
