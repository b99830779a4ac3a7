package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"jobpool/internal/chaos"
	"jobpool/internal/client"
	"jobpool/internal/events"
	"jobpool/internal/httpd"
	"jobpool/internal/logger"
	"jobpool/internal/metrics"
	"jobpool/internal/worker"
)

const scope = "scenario"

// ErrAlreadyRunning は実行中のEngineを再度Runした場合のエラー
var ErrAlreadyRunning = errors.New("scenario is already running")

// Config はシナリオの設定
type Config struct {
	Name        string        // シナリオ名
	Description string        // 説明
	Duration    time.Duration // 実行時間

	// サーバー設定
	ServerWorkers int           // ディスパッチャーのワーカー数
	SleepDelay    time.Duration // GET /sleep の待ち時間（0で10ms）

	// クライアント設定
	ClientWorkers int     // ワーカー数
	MissingRatio  float64 // 404 の比率
	SleepRatio    float64 // /sleep の比率

	// カオス設定
	EnableChaos   bool               // カオス注入を有効化
	ChaosInterval time.Duration      // 攻撃間隔
	JobsPerAttack int                // 1回の攻撃で投入するジョブ数
	StallDuration time.Duration      // Stallジョブの占有時間
	BurstSize     int                // Burstジョブ数
	AttackTypes   []chaos.AttackType // 有効な攻撃タイプ
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:          "default",
		Description:   "Default scenario",
		Duration:      10 * time.Second,
		ServerWorkers: 4,
		ClientWorkers: 10,
		MissingRatio:  0.1,
		EnableChaos:   true,
		ChaosInterval: 2 * time.Second,
		JobsPerAttack: 1,
		AttackTypes:   []chaos.AttackType{chaos.AttackPanic, chaos.AttackStall, chaos.AttackBurst},
	}
}

// Result はシナリオ実行結果
type Result struct {
	ScenarioName string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration

	// リクエストメトリクス
	TotalRequests   uint64
	SuccessRequests uint64
	FailedRequests  uint64
	ErrorRate       float64
	AvgLatency      time.Duration
	P99Latency      time.Duration

	// サーバープール
	ServerWorkers  int
	WorkersAlive   int
	JobsCompleted  uint64
	JobsFailed     uint64
	FinalPoolState string

	// カオス統計
	TotalAttacks uint64
	InjectedJobs uint64
}

// Engine はシナリオ実行エンジン
type Engine struct {
	config   Config
	eventBus *events.Bus

	root    string
	pool    *worker.Pool
	server  *httpd.Server
	client  *client.Client
	monkey  *chaos.Monkey
	stopSrv context.CancelFunc
	srvDone chan struct{}

	mu      sync.RWMutex
	running bool
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config: config,
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// Run はシナリオを実行する
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	logger.Info(scope, "=== Scenario '%s' started ===", e.config.Name)
	logger.Info(scope, "Description: %s", e.config.Description)

	result := &Result{
		ScenarioName: e.config.Name,
		StartTime:    time.Now(),
	}

	if err := e.setup(); err != nil {
		e.teardown()
		return nil, fmt.Errorf("setup failed: %w", err)
	}

	snapshot := e.runScenario(ctx)
	result.WorkersAlive = e.pool.Running()

	// teardown でプールを drain してからサーバー側の統計を取る
	e.teardown()

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	e.collectResults(result, snapshot)

	logger.Info(scope, "=== Scenario '%s' completed ===", e.config.Name)

	return result, nil
}

// setup はシナリオ実行前のセットアップ
func (e *Engine) setup() error {
	e.monkey = nil

	// 静的ファイル
	root, err := os.MkdirTemp("", "jobpool-scenario-")
	if err != nil {
		return fmt.Errorf("failed to create site root: %w", err)
	}
	e.root = root
	for name, body := range map[string]string{
		"hello.html": "<!DOCTYPE html>\n<html><body><h1>Hello!</h1></body></html>\n",
		"404.html":   "<!DOCTYPE html>\n<html><body><h1>Oops!</h1></body></html>\n",
	} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(body), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	// サーバー側プール
	e.pool, err = worker.NewWithConfig(worker.Config{
		Size:   e.config.ServerWorkers,
		Name:   "server",
		Events: e.eventBus,
	})
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	// ディスパッチャー
	sleepDelay := e.config.SleepDelay
	if sleepDelay <= 0 {
		sleepDelay = 10 * time.Millisecond
	}
	serverConfig := httpd.DefaultConfig()
	serverConfig.Addr = "127.0.0.1:0"
	serverConfig.Root = root
	serverConfig.SleepDelay = sleepDelay
	e.server = httpd.New(serverConfig, e.pool)
	if err := e.server.Listen(); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	var srvCtx context.Context
	srvCtx, e.stopSrv = context.WithCancel(context.Background())
	e.srvDone = make(chan struct{})
	go func() {
		defer close(e.srvDone)
		if err := e.server.Serve(srvCtx); err != nil {
			logger.Error(scope, "dispatcher error: %v", err)
		}
	}()

	// クライアント
	clientConfig := client.DefaultConfig()
	clientConfig.Addr = e.server.Addr().String()
	clientConfig.NumWorkers = e.config.ClientWorkers
	clientConfig.MissingRatio = e.config.MissingRatio
	clientConfig.SleepRatio = e.config.SleepRatio
	e.client, err = client.New(clientConfig)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	// カオスモンキー
	if e.config.EnableChaos {
		chaosConfig := chaos.DefaultConfig()
		chaosConfig.Interval = e.config.ChaosInterval
		chaosConfig.JobsPerAttack = e.config.JobsPerAttack
		chaosConfig.AttackTypes = e.config.AttackTypes
		if e.config.StallDuration > 0 {
			chaosConfig.StallDuration = e.config.StallDuration
		}
		if e.config.BurstSize > 0 {
			chaosConfig.BurstSize = e.config.BurstSize
		}
		e.monkey = chaos.New(e.pool, chaosConfig)
		e.monkey.SetEventBus(e.eventBus)
	}

	return nil
}

// runScenario はシナリオのメイン処理
func (e *Engine) runScenario(ctx context.Context) *metrics.Snapshot {
	if e.monkey != nil {
		e.monkey.Start(ctx)
		defer e.monkey.Stop()
	}

	snapshot := e.client.RunFor(ctx, e.config.Duration)

	logger.Info(scope, "Scenario duration completed, stopping components...")
	return snapshot
}

// teardown はシナリオ実行後のクリーンアップ
func (e *Engine) teardown() {
	if e.monkey != nil {
		e.monkey.Stop()
	}
	if e.stopSrv != nil {
		e.stopSrv()
		<-e.srvDone
		e.stopSrv = nil
	}
	if e.pool != nil {
		e.pool.Shutdown()
	}
	if e.root != "" {
		if err := os.RemoveAll(e.root); err != nil {
			logger.Warn(scope, "failed to remove %s: %v", e.root, err)
		}
		e.root = ""
	}
}

// collectResults は結果を収集する
func (e *Engine) collectResults(result *Result, snapshot *metrics.Snapshot) {
	result.TotalRequests = snapshot.Completed + snapshot.Failed
	result.SuccessRequests = snapshot.Completed
	result.FailedRequests = snapshot.Failed
	result.ErrorRate = snapshot.FailureRate
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency

	stats := e.pool.Stats()
	result.ServerWorkers = stats.Size
	result.JobsCompleted = stats.Jobs.Completed
	result.JobsFailed = stats.Jobs.Failed
	result.FinalPoolState = stats.State

	if e.monkey != nil {
		chaosStats := e.monkey.Stats()
		result.TotalAttacks = chaosStats.TotalAttacks
		result.InjectedJobs = chaosStats.InjectedJobs
	}
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	return fmt.Sprintf(`
================================================================================
                         SCENARIO REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  End Time:       %s
  Duration:       %v

TRAFFIC METRICS
---------------
  Total Requests:   %d
  Success:          %d
  Failed:           %d
  Error Rate:       %.2f%%
  Avg Latency:      %v
  P99 Latency:      %v

SERVER POOL
-----------
  Workers:          %d (alive at end of load: %d)
  Jobs Completed:   %d
  Jobs Failed:      %d
  Final State:      %s

CHAOS STATISTICS
----------------
  Total Attacks:    %d
  Injected Jobs:    %d

================================================================================`,
		r.ScenarioName,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.TotalRequests,
		r.SuccessRequests,
		r.FailedRequests,
		r.ErrorRate*100,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
		r.ServerWorkers,
		r.WorkersAlive,
		r.JobsCompleted,
		r.JobsFailed,
		r.FinalPoolState,
		r.TotalAttacks,
		r.InjectedJobs,
	)
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}
