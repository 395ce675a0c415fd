package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/pipeline"
)

// Indexer holds every collector the indexer exports. It satisfies the
// reader, driver and Pebble observation hooks.
type Indexer struct {
	entriesRead     prometheus.Counter
	retries         *prometheus.CounterVec
	batches         prometheus.Counter
	mutations       prometheus.Counter
	checkpoint      prometheus.Gauge
	readerCursor    prometheus.Gauge
	commitDuration  prometheus.Histogram
	state           *prometheus.GaugeVec
	storageDuration *prometheus.HistogramVec
	storageBytes    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Indexer {
	m := &Indexer{
		entriesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indexer_entries_read_total", Help: "Log entries read from the source",
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indexer_retries_total", Help: "Retried operations by component",
		}, []string{"component"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indexer_batches_committed_total", Help: "Batches committed to the store",
		}),
		mutations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indexer_mutations_total", Help: "Field writes submitted to the store",
		}),
		checkpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indexer_checkpoint_height", Help: "Last committed checkpoint height",
		}),
		readerCursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indexer_reader_height", Help: "Height of the last batch handed to the driver",
		}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "indexer_batch_duration_seconds", Help: "Time from batch dequeue to commit", Buckets: prometheus.DefBuckets,
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "indexer_driver_state", Help: "1 for the driver's current state",
		}, []string{"state"}),
		storageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "indexer_pebble_op_duration_seconds", Help: "Pebble operation latency", Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		storageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indexer_pebble_bytes_total", Help: "Bytes read or committed through Pebble",
		}, []string{"op"}),
	}
	reg.MustRegister(m.entriesRead, m.retries, m.batches, m.mutations, m.checkpoint,
		m.readerCursor, m.commitDuration, m.state, m.storageDuration, m.storageBytes)
	return m
}

// reader.Hooks

func (m *Indexer) EntriesRead(n int) { m.entriesRead.Add(float64(n)) }

func (m *Indexer) ReadRetry() { m.retries.WithLabelValues("reader").Inc() }

func (m *Indexer) BatchEnqueued(_ int, last eventlog.Cursor) {
	m.readerCursor.Set(float64(last.Height))
}

// pipeline.Hooks

func (m *Indexer) StateChanged(s pipeline.State) {
	for _, st := range pipeline.States() {
		v := 0.0
		if st == s {
			v = 1
		}
		m.state.WithLabelValues(st.String()).Set(v)
	}
}

func (m *Indexer) BatchCommitted(mutations int, checkpoint *uint64, elapsed time.Duration) {
	m.batches.Inc()
	m.mutations.Add(float64(mutations))
	m.commitDuration.Observe(elapsed.Seconds())
	if checkpoint != nil {
		m.checkpoint.Set(float64(*checkpoint))
	}
}

func (m *Indexer) EnrichRetry() { m.retries.WithLabelValues("rpc").Inc() }

// SinkRetry matches sink.RetryOptions.OnRetry.
func (m *Indexer) SinkRetry(int, error) { m.retries.WithLabelValues("sink").Inc() }

// pebblestore.MetricsHook

func (m *Indexer) ObserveRead(elapsed time.Duration, bytes int) {
	m.storageDuration.WithLabelValues("read").Observe(elapsed.Seconds())
	m.storageBytes.WithLabelValues("read").Add(float64(bytes))
}

func (m *Indexer) ObserveBatchCommit(elapsed time.Duration, bytes int) {
	m.storageDuration.WithLabelValues("commit").Observe(elapsed.Seconds())
	m.storageBytes.WithLabelValues("commit").Add(float64(bytes))
}
