package httpd

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jobpool/internal/worker"
)

func writeSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "hello.html"), []byte("<h1>Hello!</h1>"), 0644); err != nil {
		t.Fatalf("failed to write hello.html: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "404.html"), []byte("<h1>Oops!</h1>"), 0644); err != nil {
		t.Fatalf("failed to write 404.html: %v", err)
	}
	return root
}

func startServer(t *testing.T, config Config, pool Executor) *Server {
	t.Helper()

	srv := New(config, pool)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(time.Second):
			t.Error("timeout waiting for Serve to return")
		}
	})
	return srv
}

func request(t *testing.T, addr net.Addr, line string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	// Only the request line is sent; the server does not read further
	if _, err := io.WriteString(conn, line+"\r\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(data)
}

func TestRoute(t *testing.T) {
	tests := []struct {
		line   string
		status string
		file   string
		sleep  bool
	}{
		{"GET / HTTP/1.1", StatusOK, "hello.html", false},
		{"GET /sleep HTTP/1.1", StatusOK, "hello.html", true},
		{"GET /missing HTTP/1.1", StatusNotFound, "404.html", false},
		{"POST / HTTP/1.1", StatusNotFound, "404.html", false},
		{"", StatusNotFound, "404.html", false},
	}

	for _, tt := range tests {
		status, file, sleep := Route(tt.line)
		if status != tt.status || file != tt.file || sleep != tt.sleep {
			t.Errorf("Route(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.line, status, file, sleep, tt.status, tt.file, tt.sleep)
		}
	}
}

func TestServerResponses(t *testing.T) {
	pool, err := worker.New(2)
	if err != nil {
		t.Fatalf("worker.New failed: %v", err)
	}
	defer pool.Shutdown()

	config := DefaultConfig()
	config.Addr = "127.0.0.1:0"
	config.Root = writeSite(t)
	config.SleepDelay = 10 * time.Millisecond

	srv := startServer(t, config, pool)

	tests := []struct {
		line string
		want string
	}{
		{"GET / HTTP/1.1", "HTTP/1.1 200 OK\r\nContent-Length: 15\r\n\r\n<h1>Hello!</h1>"},
		{"GET /sleep HTTP/1.1", "HTTP/1.1 200 OK\r\nContent-Length: 15\r\n\r\n<h1>Hello!</h1>"},
		{"GET /nope HTTP/1.1", "HTTP/1.1 404 NOT FOUND\r\nContent-Length: 14\r\n\r\n<h1>Oops!</h1>"},
	}

	for _, tt := range tests {
		if got := request(t, srv.Addr(), tt.line); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.line, got, tt.want)
		}
	}

	deadline := time.Now().Add(time.Second)
	for pool.Metrics().Submitted() != 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := pool.Metrics().Submitted(); got != 3 {
		t.Errorf("expected 3 jobs submitted, got %d", got)
	}
}

func TestServerMissingFile(t *testing.T) {
	pool, err := worker.New(1)
	if err != nil {
		t.Fatalf("worker.New failed: %v", err)
	}
	defer pool.Shutdown()

	config := DefaultConfig()
	config.Addr = "127.0.0.1:0"
	config.Root = t.TempDir()

	srv := startServer(t, config, pool)

	got := request(t, srv.Addr(), "GET / HTTP/1.1")
	if !strings.HasPrefix(got, StatusError) {
		t.Errorf("expected 500 response, got %q", got)
	}
}

func TestServerRejectsAfterPoolShutdown(t *testing.T) {
	pool, err := worker.New(1)
	if err != nil {
		t.Fatalf("worker.New failed: %v", err)
	}
	pool.Shutdown()

	config := DefaultConfig()
	config.Addr = "127.0.0.1:0"
	config.Root = writeSite(t)

	srv := startServer(t, config, pool)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	// The connection is closed without a response
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty response, got %q", data)
	}
	if pool.Metrics().Rejected() != 1 {
		t.Errorf("expected 1 rejected job, got %d", pool.Metrics().Rejected())
	}
}

func TestServerListenError(t *testing.T) {
	srv := New(Config{Addr: "256.0.0.1:bad"}, nil)
	if err := srv.Serve(context.Background()); err == nil {
		t.Error("expected listen error")
	}
	if srv.Addr() != nil {
		t.Error("expected nil address when not listening")
	}
}
