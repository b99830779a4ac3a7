package client

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"runtime"
	"strings"
	"time"

	"jobpool/internal/httpd"
	"jobpool/internal/logger"
	"jobpool/internal/metrics"
	"jobpool/internal/worker"
)

const scope = "client"

// Config はClientの設定
type Config struct {
	Addr         string        // 接続先
	NumWorkers   int           // 並列数（0でCPU数）
	MissingRatio float64       // 404 になるパスの比率（0.0〜1.0）
	SleepRatio   float64       // /sleep の比率（0.0〜1.0）
	Timeout      time.Duration // 1リクエストのタイムアウト
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:7878",
		NumWorkers:   0, // CPU数
		MissingRatio: 0.1,
		SleepRatio:   0,
		Timeout:      10 * time.Second,
	}
}

// Client は負荷生成器
type Client struct {
	config  Config
	pool    *worker.Pool
	metrics *metrics.Metrics
}

// New は新しいClientを作成する
func New(config Config) (*Client, error) {
	if config.NumWorkers <= 0 {
		config.NumWorkers = runtime.NumCPU()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	pool, err := worker.NewWithConfig(worker.Config{
		Size: config.NumWorkers,
		Name: scope,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		config:  config,
		pool:    pool,
		metrics: metrics.NewWithConfig(metrics.Config{Namespace: "jobpool_client"}),
	}, nil
}

// requestLine はリクエスト行を比率に従って選ぶ
func (c *Client) requestLine() (line, wantStatus string) {
	r := rand.Float64()
	switch {
	case r < c.config.MissingRatio:
		return "GET /missing HTTP/1.1", httpd.StatusNotFound
	case r < c.config.MissingRatio+c.config.SleepRatio:
		return "GET /sleep HTTP/1.1", httpd.StatusOK
	default:
		return "GET / HTTP/1.1", httpd.StatusOK
	}
}

// createJob はリクエストジョブを作成する
func (c *Client) createJob() worker.Job {
	line, want := c.requestLine()

	return func() {
		c.metrics.JobStarted()
		start := time.Now()

		err := c.do(line, want)

		latency := time.Since(start)
		if err != nil {
			logger.Debug(scope, "%q failed: %v", line, err)
			c.metrics.RecordFailure(latency)
		} else {
			c.metrics.RecordSuccess(latency)
		}
	}
}

// do は1リクエストを送り、ステータス行を検証する
func (c *Client) do(line, want string) error {
	conn, err := net.DialTimeout("tcp", c.config.Addr, c.config.Timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.config.Timeout))

	if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
		return err
	}

	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read status line: %w", err)
	}
	status = strings.TrimRight(status, "\r\n")
	if status != want {
		return fmt.Errorf("unexpected status %q, want %q", status, want)
	}
	return nil
}

// submit はキューが詰まりすぎないよう待ってからジョブを投入する
func (c *Client) submit(ctx context.Context) bool {
	limit := 2 * c.pool.Size()
	for c.pool.QueueLen() >= limit {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Millisecond):
		}
	}
	return c.pool.Execute(c.createJob()) == nil
}

// RunRequests は指定数のリクエストを実行し、完了を待ってスナップショットを返す
func (c *Client) RunRequests(ctx context.Context, count uint64) *metrics.Snapshot {
	logger.Info(scope, "Client started (workers: %d, requests: %d)", c.pool.Size(), count)

	for i := uint64(0); i < count; i++ {
		if ctx.Err() != nil || !c.submit(ctx) {
			break
		}
	}

	return c.finish()
}

// RunFor は指定時間だけ負荷生成を実行する
func (c *Client) RunFor(ctx context.Context, duration time.Duration) *metrics.Snapshot {
	logger.Info(scope, "Client started (workers: %d, duration: %v)", c.pool.Size(), duration)

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	for ctx.Err() == nil {
		if !c.submit(ctx) {
			break
		}
	}

	return c.finish()
}

// finish はプールを drain して停止し、スナップショットを返す
func (c *Client) finish() *metrics.Snapshot {
	c.pool.Shutdown()

	snapshot := c.metrics.Snapshot()
	logger.Info(scope, "Client stopped (completed: %d, failed: %d)", snapshot.Completed, snapshot.Failed)
	return &snapshot
}

// Metrics はリクエストのメトリクスを返す
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}
