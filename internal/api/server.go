package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"jobpool/internal/events"
	"jobpool/internal/logger"
	"jobpool/internal/metrics"
	"jobpool/internal/worker"

	"golang.org/x/net/websocket"
)

const scope = "api"

// PoolStatus はステータス API が参照するプール
type PoolStatus interface {
	Stats() worker.Stats
	Metrics() *metrics.Metrics
}

// Server はプールの状態を公開する API サーバー
type Server struct {
	addr     string
	pool     PoolStatus
	bus      *events.Bus
	interval time.Duration

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しい API サーバーを作成する
// bus が nil ならイベントは配信しない
func NewServer(addr string, pool PoolStatus, bus *events.Bus, interval time.Duration) *Server {
	if interval <= 0 {
		interval = time.Second
	}
	return &Server{
		addr:      addr,
		pool:      pool,
		bus:       bus,
		interval:  interval,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.Handle("/metrics", s.pool.Metrics().Handler())

	// WebSocket
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// Start はサーバーを開始する。ctx が終了すると停止する
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	s.runBackground(ctx)

	logger.Info(scope, "API Server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// runBackground は統計とイベントの配信ループを起動する
func (s *Server) runBackground(ctx context.Context) {
	go s.broadcastLoop(ctx)
	if s.bus != nil {
		go s.forwardEvents(ctx, s.bus.Subscribe())
	}
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Size    int    `json:"size"`
	Running int    `json:"running"`
	Queued  int    `json:"queued"`
}

func newStatusResponse(stats worker.Stats) StatusResponse {
	return StatusResponse{
		Name:    stats.Name,
		State:   stats.State,
		Size:    stats.Size,
		Running: stats.Running,
		Queued:  stats.Queued,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, newStatusResponse(s.pool.Stats()))
}

// MetricsResponse はメトリクスレスポンス
type MetricsResponse struct {
	Submitted    uint64  `json:"submitted"`
	Rejected     uint64  `json:"rejected"`
	Completed    uint64  `json:"completed"`
	Failed       uint64  `json:"failed"`
	Busy         int64   `json:"busy"`
	Throughput   float64 `json:"throughput"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
	FailureRate  float64 `json:"failure_rate"`
}

func newMetricsResponse(snap metrics.Snapshot) MetricsResponse {
	return MetricsResponse{
		Submitted:    snap.Submitted,
		Rejected:     snap.Rejected,
		Completed:    snap.Completed,
		Failed:       snap.Failed,
		Busy:         snap.Busy,
		Throughput:   snap.OverallThroughput,
		AvgLatencyMs: float64(snap.AverageLatency) / float64(time.Millisecond),
		P99LatencyMs: float64(snap.P99Latency) / float64(time.Millisecond),
		FailureRate:  snap.FailureRate,
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, newMetricsResponse(s.pool.Metrics().Snapshot()))
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

// clientCount は接続中の WebSocket クライアント数を返す
func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) broadcast(data any) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		logger.Error(scope, "Failed to encode broadcast: %v", err)
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// broadcastLoop は一定間隔で統計を配信する
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.pool.Stats()
			s.broadcast(map[string]any{
				"type":    "stats",
				"status":  newStatusResponse(stats),
				"metrics": newMetricsResponse(stats.Jobs),
			})
		}
	}
}

// forwardEvents はイベントバスのイベントをそのまま配信する
func (s *Server) forwardEvents(ctx context.Context, ch <-chan events.Event) {
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(map[string]any{
				"type":  "event",
				"event": event,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(scope, "Failed to encode JSON: %v", err)
	}
}
