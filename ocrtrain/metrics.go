package ocrtrain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reasons passed to Metrics when a sample is skipped.
const (
	SkipDecode = "decode"
	SkipLength = "length"
)

// Metrics exports training progress to prometheus.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TrainLoss     prometheus.Gauge
	ValidLoss     prometheus.Gauge
	Epochs        prometheus.Counter
	Samples       prometheus.Counter
	Skipped       *prometheus.CounterVec
	BatchDuration prometheus.Histogram
}

// NewMetrics creates a set of metrics and registers them
// with reg, if reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TrainLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ocr_train_loss",
			Help: "Mean CTC loss of the most recent training batch.",
		}),
		ValidLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ocr_valid_loss",
			Help: "Mean CTC loss on the validation set after the last epoch.",
		}),
		Epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ocr_epochs_total",
			Help: "Number of completed training epochs.",
		}),
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ocr_train_samples_total",
			Help: "Number of samples used for gradient steps.",
		}),
		Skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocr_skipped_samples_total",
				Help: "Number of samples dropped while fetching batches.",
			},
			[]string{"reason"},
		),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ocr_batch_duration_seconds",
			Help:    "A histogram of gradient step latencies.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.TrainLoss, m.ValidLoss, m.Epochs, m.Samples, m.Skipped,
			m.BatchDuration)
	}
	return m
}

func (m *Metrics) skip(reason string) {
	if m != nil {
		m.Skipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) step(size int, loss float64, d time.Duration) {
	if m != nil {
		m.Samples.Add(float64(size))
		m.TrainLoss.Set(loss)
		m.BatchDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) epoch(validLoss float64) {
	if m != nil {
		m.Epochs.Inc()
		m.ValidLoss.Set(validLoss)
	}
}
