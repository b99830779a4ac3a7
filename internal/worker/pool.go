package worker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"jobpool/internal/events"
	"jobpool/internal/logger"
	"jobpool/internal/metrics"
	"jobpool/internal/queue"
)

// Job はワーカーが実行するジョブを表す
type Job func()

var (
	// ErrInvalidSize はワーカー数が 0 以下のときに返される
	ErrInvalidSize = errors.New("worker: pool size must be greater than zero")
	// ErrPoolClosed はシャットダウン開始後の Execute で返される
	ErrPoolClosed = errors.New("worker: pool is shut down")
	// ErrNilJob は nil のジョブが渡されたときに返される
	ErrNilJob = errors.New("worker: nil job")
)

// State はプールの状態を表す
type State int32

const (
	StateAccepting State = iota
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateAccepting:
		return "Accepting"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// PanicHandler はジョブが panic したときに呼ばれる
type PanicHandler func(workerID int, recovered any)

// Config はワーカープールの設定
type Config struct {
	Size         int              // ワーカー数（1以上）
	Name         string           // ログとイベントに使う名前
	Events       *events.Bus      // nil ならイベントを発行しない
	Metrics      *metrics.Metrics // nil なら内部で作成する
	PanicHandler PanicHandler
}

// Pool は固定数のゴルーチンのプールを管理する
type Pool struct {
	name    string
	workers []*worker
	queue   *queue.Queue[Job]

	state   atomic.Int32
	running atomic.Int32

	shutdownOnce sync.Once

	events  *events.Bus
	metrics *metrics.Metrics
	onPanic PanicHandler
}

// New は size 個のワーカーを持つプールを作成して起動する
func New(size int) (*Pool, error) {
	return NewWithConfig(Config{Size: size})
}

// NewWithConfig は設定を指定してプールを作成して起動する
// 戻る時点で全ワーカーが起動済み
func NewWithConfig(config Config) (*Pool, error) {
	if config.Size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, config.Size)
	}
	if config.Name == "" {
		config.Name = "pool"
	}
	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}

	p := &Pool{
		name:    config.Name,
		workers: make([]*worker, 0, config.Size),
		queue:   queue.New[Job](),
		events:  config.Events,
		metrics: config.Metrics,
		onPanic: config.PanicHandler,
	}
	p.state.Store(int32(StateAccepting))

	if err := p.metrics.RegisterQueueDepth(p.queue.Len); err != nil {
		logger.Warn(p.name, "queue depth gauge not registered: %v", err)
	}

	var ready sync.WaitGroup
	ready.Add(config.Size)
	for i := range config.Size {
		p.workers = append(p.workers, newWorker(i, p, &ready))
	}
	ready.Wait()

	logger.Info(p.name, "WorkerPool started with %d workers", config.Size)
	return p, nil
}

// Execute はジョブをキューに追加する。呼び出し元をブロックしない
func (p *Pool) Execute(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	if err := p.queue.Send(job); err != nil {
		p.metrics.RecordRejected()
		logger.Warn(p.name, "job rejected: %v", ErrPoolClosed)
		return ErrPoolClosed
	}

	p.metrics.RecordSubmitted()
	return nil
}

// Shutdown はキューを閉じ、キュー内の全ジョブの完了と全ワーカーの終了を待つ
// 2回目以降の呼び出しは最初の呼び出しが完了するまで待ってから戻る
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.state.Store(int32(StateDraining))
		pending := p.queue.Len()
		p.queue.Close()

		logger.Info(p.name, "WorkerPool draining, %d jobs pending", pending)
		p.events.Publish(events.NewPoolDrainingEvent(p.name, pending))

		for _, w := range p.workers {
			logger.Info(p.name, "Shutting down worker %d", w.id)
			w.join()
		}

		p.state.Store(int32(StateStopped))
		p.events.Publish(events.NewPoolStoppedEvent(p.name, len(p.workers)))
		logger.Info(p.name, "WorkerPool stopped")
	})
}

// Close は Shutdown を呼ぶ。defer 用
func (p *Pool) Close() error {
	p.Shutdown()
	return nil
}

// Name はプール名を返す
func (p *Pool) Name() string {
	return p.name
}

// Size はワーカー数を返す
func (p *Pool) Size() int {
	return len(p.workers)
}

// State は現在の状態を返す
func (p *Pool) State() State {
	return State(p.state.Load())
}

// Running は稼働中のワーカー数を返す
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// QueueLen はキュー内の未実行ジョブ数を返す
func (p *Pool) QueueLen() int {
	return p.queue.Len()
}

// Metrics はプールのメトリクスを返す
func (p *Pool) Metrics() *metrics.Metrics {
	return p.metrics
}

// Stats はプールの状態のスナップショット
type Stats struct {
	Name    string           `json:"name"`
	State   string           `json:"state"`
	Size    int              `json:"size"`
	Running int              `json:"running"`
	Queued  int              `json:"queued"`
	Jobs    metrics.Snapshot `json:"jobs"`
}

// Stats は現在のスナップショットを返す
func (p *Pool) Stats() Stats {
	return Stats{
		Name:    p.name,
		State:   p.State().String(),
		Size:    p.Size(),
		Running: p.Running(),
		Queued:  p.QueueLen(),
		Jobs:    p.metrics.Snapshot(),
	}
}
