package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Plot engine metrics
	PiecesPlottedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farmer_pieces_plotted_total",
			Help: "Total number of pieces written to the plot",
		},
	)

	PlotWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "farmer_plot_write_duration_seconds",
			Help:    "Time taken to write a batch of encodings to the plot",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlotReadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "farmer_plot_read_duration_seconds",
			Help:    "Time taken to read a single piece from the plot",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlotFindByRangeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "farmer_plot_find_by_range_duration_seconds",
			Help:    "Time taken to run a range query against the tag index",
			Buckets: prometheus.DefBuckets,
		},
	)

	CommitmentsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farmer_commitments_created_total",
			Help: "Total number of commitments created",
		},
	)

	CommitmentCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "farmer_commitment_create_duration_seconds",
			Help:    "Time taken to create a commitment for a salt",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		},
	)

	// Farming loop metrics
	SlotsProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farmer_slots_processed_total",
			Help: "Total number of slot notifications processed",
		},
	)

	SolutionsFoundTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "farmer_solutions_found_total",
			Help: "Total number of slots for which a solution was proposed",
		},
	)

	FarmerRPCErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmer_rpc_errors_total",
			Help: "Total number of JSON-RPC errors by method",
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(PiecesPlottedTotal)
	prometheus.MustRegister(PlotWriteDuration)
	prometheus.MustRegister(PlotReadDuration)
	prometheus.MustRegister(PlotFindByRangeDuration)
	prometheus.MustRegister(CommitmentsCreatedTotal)
	prometheus.MustRegister(CommitmentCreateDuration)
	prometheus.MustRegister(SlotsProcessedTotal)
	prometheus.MustRegister(SolutionsFoundTotal)
	prometheus.MustRegister(FarmerRPCErrorsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
