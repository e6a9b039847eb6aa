package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SynthRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpsynth_runs_total",
			Help: "Synthesis runs by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	SynthRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bgpsynth_run_duration_seconds",
			Help:    "End-to-end synthesis run latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"source"},
	)

	OrderViolationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bgpsynth_order_violations_total",
			Help: "Ordering violations reported across all runs.",
		},
	)

	PrefixesPerRun = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bgpsynth_prefixes_per_run",
			Help:    "Destination prefixes handled per run.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	ASPathDomainSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bgpsynth_as_path_domain_size",
			Help:    "Distinct AS-path values registered per run.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	KafkaMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpsynth_kafka_messages_total",
			Help: "Total job messages consumed from Kafka.",
		},
		[]string{"topic", "action"},
	)

	DBWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bgpsynth_db_write_duration_seconds",
			Help:    "DB write latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"op"},
	)

	DBRowsAffectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpsynth_db_rows_affected_total",
			Help: "DB rows written or deleted.",
		},
		[]string{"table", "op"},
	)

	RunDedupHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bgpsynth_run_dedup_hits_total",
			Help: "Runs skipped because an identical request digest already succeeded.",
		},
	)

	RequestErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bgpsynth_request_errors_total",
			Help: "Rejected synthesis requests by stage.",
		},
		[]string{"stage", "reason"},
	)

	RunsPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bgpsynth_runs_pruned_total",
			Help: "Stored runs removed by retention maintenance.",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		SynthRunsTotal,
		SynthRunDuration,
		OrderViolationsTotal,
		PrefixesPerRun,
		ASPathDomainSize,
		KafkaMessagesTotal,
		DBWriteDuration,
		DBRowsAffectedTotal,
		RunDedupHitsTotal,
		RequestErrorsTotal,
		RunsPrunedTotal,
	)
}
