package httpd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"jobpool/internal/logger"
	"jobpool/internal/worker"
)

const scope = "httpd"

const (
	StatusOK       = "HTTP/1.1 200 OK"
	StatusNotFound = "HTTP/1.1 404 NOT FOUND"
	StatusError    = "HTTP/1.1 500 INTERNAL SERVER ERROR"
)

// Executor はジョブを受け付けるプール
type Executor interface {
	Execute(job worker.Job) error
}

// Config はサーバー設定
type Config struct {
	Addr        string
	Root        string        // hello.html / 404.html を置くディレクトリ
	SleepDelay  time.Duration // GET /sleep の待ち時間
	ReadTimeout time.Duration // リクエスト行の読み取りタイムアウト（0で無制限）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:7878",
		Root:        ".",
		SleepDelay:  5 * time.Second,
		ReadTimeout: 10 * time.Second,
	}
}

// Route はリクエスト行からステータス行と返すファイルを決める
func Route(requestLine string) (status, file string, sleep bool) {
	switch requestLine {
	case "GET / HTTP/1.1":
		return StatusOK, "hello.html", false
	case "GET /sleep HTTP/1.1":
		return StatusOK, "hello.html", true
	default:
		return StatusNotFound, "404.html", false
	}
}

// Server は接続ごとにジョブをプールへ投入する
type Server struct {
	config Config
	pool   Executor

	mu       sync.Mutex
	listener net.Listener
}

// New は新しいサーバーを作成する
func New(config Config, pool Executor) *Server {
	return &Server{
		config: config,
		pool:   pool,
	}
}

// Listen はアドレスをバインドする。Serve の前に呼ぶとポートを確定できる
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr はバインド済みのアドレスを返す（未バインドなら nil）
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve は ctx が終了するまで接続を受け付ける
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	logger.Info(scope, "Listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Info(scope, "Listener closed")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		s.dispatch(conn)
	}
}

// dispatch は接続を処理するジョブをプールへ投入する
func (s *Server) dispatch(conn net.Conn) {
	id := ksuid.New().String()

	err := s.pool.Execute(func() {
		s.handle(id, conn)
	})
	if err != nil {
		logger.Warn(scope, "[%s] connection from %s rejected: %v", id, conn.RemoteAddr(), err)
		_ = conn.Close()
		return
	}

	logger.Debug(scope, "[%s] connection from %s queued", id, conn.RemoteAddr())
}

// handle はリクエスト行を読み、静的ファイルを返す
func (s *Server) handle(id string, conn net.Conn) {
	defer conn.Close()

	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		logger.Warn(scope, "[%s] failed to read request line: %v", id, err)
		return
	}
	requestLine := strings.TrimRight(line, "\r\n")

	status, file, sleep := Route(requestLine)
	if sleep {
		time.Sleep(s.config.SleepDelay)
	}

	content, err := os.ReadFile(filepath.Join(s.config.Root, file))
	if err != nil {
		logger.Error(scope, "[%s] failed to read %s: %v", id, file, err)
		status, content = StatusError, nil
	}

	response := fmt.Sprintf("%s\r\nContent-Length: %d\r\n\r\n%s", status, len(content), content)
	if _, err := conn.Write([]byte(response)); err != nil {
		logger.Warn(scope, "[%s] failed to write response: %v", id, err)
		return
	}

	logger.Info(scope, "[%s] %q -> %s", id, requestLine, status)
}
