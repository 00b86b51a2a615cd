package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
)

var AlertsGeneratedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "alerts_generated_total",
		Help: "Total number of alerts generated per rule type",
	},
	[]string{"rule_type", "record_kind"},
)

var AlertGenerationFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "alert_generation_failures_total",
		Help: "Total number of failed alert generation batches per rule type",
	},
	[]string{"rule_type"},
)

var AlertsExpiredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "alerts_expired_total",
		Help: "Total number of pending alerts dismissed because they expired",
	},
)

var SchedulerJobRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_job_runs_total",
		Help: "Total number of scheduler job executions per job and outcome",
	},
	[]string{"job", "status"},
)

var SchedulerJobDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "scheduler_job_duration_seconds",
		Help:    "Duration of scheduler job executions in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"job"},
)

var SchedulerJobSkippedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_job_skipped_total",
		Help: "Number of scheduler ticks skipped because the previous run was still executing",
	},
	[]string{"job"},
)

var KafkaPublisherSuccess = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_success_total",
		Help: "Total number of successful Kafka publishes",
	},
	[]string{"topic"},
)

var KafkaPublisherFailure = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_failure_total",
		Help: "Total number of failed Kafka publishes",
	},
	[]string{"topic"},
)

var KafkaSubscriberFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_subscriber_failure_total",
		Help: "Total number of failed Kafka reads",
	},
	[]string{"topic"},
)

var KafkaConsumerLag = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "kafka_consumer_lag",
		Help: "Lag of Kafka consumer group per topic",
	},
	[]string{"group", "topic"},
)

func InitAPIMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpErrorsTotal)
	prometheus.MustRegister(HttpRateLimitRejectionsTotal)
	// Admin endpoints can trigger generation jobs in-process.
	prometheus.MustRegister(AlertsGeneratedTotal)
	prometheus.MustRegister(AlertGenerationFailuresTotal)
	prometheus.MustRegister(AlertsExpiredTotal)
}

func InitWorkerMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpErrorsTotal)
	prometheus.MustRegister(AlertsGeneratedTotal)
	prometheus.MustRegister(AlertGenerationFailuresTotal)
	prometheus.MustRegister(AlertsExpiredTotal)
	prometheus.MustRegister(SchedulerJobRunsTotal)
	prometheus.MustRegister(SchedulerJobDuration)
	prometheus.MustRegister(SchedulerJobSkippedTotal)
}

func InitKafkaMetrics() {
	prometheus.MustRegister(KafkaPublisherSuccess)
	prometheus.MustRegister(KafkaPublisherFailure)
	prometheus.MustRegister(KafkaSubscriberFailureTotal)
	prometheus.MustRegister(KafkaConsumerLag)
}
