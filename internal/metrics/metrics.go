package metrics

import (
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config はメトリクスの設定
type Config struct {
	Namespace         string // Prometheus のメトリクス名プレフィックス
	MaxLatencySamples int    // P99 計算用に保持するサンプル数
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Namespace:         "jobpool",
		MaxLatencySamples: 1000,
	}
}

// Metrics はジョブ実行のメトリクスを収集する
type Metrics struct {
	submitted      atomic.Uint64
	rejected       atomic.Uint64
	completed      atomic.Uint64
	failed         atomic.Uint64
	busy           atomic.Int64
	totalLatencyNs atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowJobs        uint64
	latencies         []time.Duration
	maxLatencySamples int

	namespace        string
	registry         *prometheus.Registry
	submittedCounter prometheus.Counter
	rejectedCounter  prometheus.Counter
	completedCounter prometheus.Counter
	failedCounter    prometheus.Counter
	busyGauge        prometheus.Gauge
	durationHist     prometheus.Histogram
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	if config.Namespace == "" {
		config.Namespace = DefaultConfig().Namespace
	}
	if config.MaxLatencySamples <= 0 {
		config.MaxLatencySamples = DefaultConfig().MaxLatencySamples
	}

	now := time.Now()
	m := &Metrics{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, config.MaxLatencySamples),
		maxLatencySamples: config.MaxLatencySamples,
		namespace:         config.Namespace,
		registry:          prometheus.NewRegistry(),
		submittedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs accepted by the pool",
		}),
		rejectedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "jobs_rejected_total",
			Help:      "Total number of jobs rejected because the pool was shutting down",
		}),
		completedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs that returned normally",
		}),
		failedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs that panicked",
		}),
		busyGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "busy_workers",
			Help:      "Number of workers currently running a job",
		}),
		durationHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "job_duration_seconds",
			Help:      "Histogram of job execution time",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.submittedCounter,
		m.rejectedCounter,
		m.completedCounter,
		m.failedCounter,
		m.busyGauge,
		m.durationHist,
	)
	return m
}

// RecordSubmitted は受け付けたジョブを記録する
func (m *Metrics) RecordSubmitted() {
	m.submitted.Add(1)
	m.submittedCounter.Inc()
}

// RecordRejected は拒否されたジョブを記録する
func (m *Metrics) RecordRejected() {
	m.rejected.Add(1)
	m.rejectedCounter.Inc()
}

// JobStarted はワーカーがジョブを開始したことを記録する
func (m *Metrics) JobStarted() {
	m.busy.Add(1)
	m.busyGauge.Inc()
}

// RecordSuccess は正常終了したジョブを記録する
func (m *Metrics) RecordSuccess(latency time.Duration) {
	m.completed.Add(1)
	m.completedCounter.Inc()
	m.finish(latency, true)
}

// RecordFailure は panic したジョブを記録する
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.failed.Add(1)
	m.failedCounter.Inc()
	m.finish(latency, false)
}

// finish はジョブ終了時の共通処理
func (m *Metrics) finish(latency time.Duration, sample bool) {
	m.busy.Add(-1)
	m.busyGauge.Dec()
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	m.durationHist.Observe(latency.Seconds())

	m.mu.Lock()
	m.windowJobs++
	if sample && len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// RegisterQueueDepth はキュー長を返す関数をゲージとして登録する
func (m *Metrics) RegisterQueueDepth(depth func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "queue_depth",
		Help:      "Number of jobs waiting in the queue",
	}, func() float64 {
		return float64(depth())
	}))
}

// Submitted は受け付けたジョブ数を返す
func (m *Metrics) Submitted() uint64 {
	return m.submitted.Load()
}

// Rejected は拒否されたジョブ数を返す
func (m *Metrics) Rejected() uint64 {
	return m.rejected.Load()
}

// Completed は正常終了したジョブ数を返す
func (m *Metrics) Completed() uint64 {
	return m.completed.Load()
}

// Failed は panic したジョブ数を返す
func (m *Metrics) Failed() uint64 {
	return m.failed.Load()
}

// Busy は実行中のワーカー数を返す
func (m *Metrics) Busy() int64 {
	return m.busy.Load()
}

// Finished は終了したジョブ数（成功 + 失敗）を返す
func (m *Metrics) Finished() uint64 {
	return m.completed.Load() + m.failed.Load()
}

// Throughput は直近ウィンドウの秒間ジョブ数を返す
func (m *Metrics) Throughput() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowJobs) / elapsed
}

// OverallThroughput は開始からの平均秒間ジョブ数を返す
func (m *Metrics) OverallThroughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.Finished()) / elapsed
}

// AverageLatency は平均実行時間を返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.Finished()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency は P99 実行時間を返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := slices.Clone(m.latencies)
	slices.Sort(sorted)

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// FailureRate は失敗率を返す（0.0〜1.0）
func (m *Metrics) FailureRate() float64 {
	total := m.Finished()
	if total == 0 {
		return 0
	}
	return float64(m.failed.Load()) / float64(total)
}

// Reset はウィンドウメトリクスをリセットする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowJobs = 0
	m.lastResetTime = time.Now()
	m.latencies = m.latencies[:0]
}

// Registry は Prometheus レジストリを返す
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler は Prometheus 形式で公開する HTTP ハンドラを返す
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	Submitted         uint64        `json:"submitted"`
	Rejected          uint64        `json:"rejected"`
	Completed         uint64        `json:"completed"`
	Failed            uint64        `json:"failed"`
	Busy              int64         `json:"busy"`
	Throughput        float64       `json:"throughput"`
	OverallThroughput float64       `json:"overall_throughput"`
	AverageLatency    time.Duration `json:"average_latency_ns"`
	P99Latency        time.Duration `json:"p99_latency_ns"`
	FailureRate       float64       `json:"failure_rate"`
	Elapsed           time.Duration `json:"elapsed_ns"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Submitted:         m.Submitted(),
		Rejected:          m.Rejected(),
		Completed:         m.Completed(),
		Failed:            m.Failed(),
		Busy:              m.Busy(),
		Throughput:        m.Throughput(),
		OverallThroughput: m.OverallThroughput(),
		AverageLatency:    m.AverageLatency(),
		P99Latency:        m.P99Latency(),
		FailureRate:       m.FailureRate(),
		Elapsed:           time.Since(m.startTime),
	}
}
