package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jobpool/internal/logger"
	"jobpool/internal/worker"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return path
}

func TestLoadFileYAML(t *testing.T) {
	content := `
pool:
  name: web
  workers: 8
server:
  addr: 0.0.0.0:8000
  root: /srv/www
  sleep_delay: 2s
status:
  enabled: false
log:
  level: debug
  file: /tmp/jobpool.log
  compress: true
`
	cfg, err := LoadFile(writeConfig(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Pool.Name != "web" {
		t.Errorf("expected name 'web', got '%s'", cfg.Pool.Name)
	}
	if cfg.Pool.Workers != 8 {
		t.Errorf("expected workers 8, got %d", cfg.Pool.Workers)
	}
	if cfg.Server.Root != "/srv/www" {
		t.Errorf("expected root /srv/www, got %s", cfg.Server.Root)
	}
	if cfg.Status.Enabled {
		t.Error("expected status to be disabled")
	}
	if !cfg.Log.Compress {
		t.Error("expected log compression")
	}
	// Fields absent from the file keep their defaults
	if cfg.Server.ReadTimeout != "10s" {
		t.Errorf("expected default read timeout 10s, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Log.MaxBackups != 3 {
		t.Errorf("expected default max backups 3, got %d", cfg.Log.MaxBackups)
	}
}

func TestLoadFileJSON(t *testing.T) {
	content := `{
  "pool": {
    "workers": 2
  },
  "server": {
    "sleep_delay": "100ms"
  }
}`
	cfg, err := LoadFile(writeConfig(t, "config.json", content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Pool.Workers != 2 {
		t.Errorf("expected workers 2, got %d", cfg.Pool.Workers)
	}
	if cfg.Pool.Name != "pool" {
		t.Errorf("expected default name 'pool', got '%s'", cfg.Pool.Name)
	}
	if cfg.Server.SleepDelay != "100ms" {
		t.Errorf("expected sleep delay 100ms, got %s", cfg.Server.SleepDelay)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "config.txt", "test"))
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "config.yaml", "pool: [unterminated"))
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFileExplicitZeroWorkers(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "config.yml", "pool:\n  workers: 0\n"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	err = cfg.Validate()
	if !errors.Is(err, worker.ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*FileConfig)
		wantErr string
	}{
		{"default", func(*FileConfig) {}, ""},
		{"negative workers", func(c *FileConfig) { c.Pool.Workers = -1 }, "pool.workers"},
		{"empty addr", func(c *FileConfig) { c.Server.Addr = "" }, "server.addr"},
		{"bad sleep delay", func(c *FileConfig) { c.Server.SleepDelay = "soon" }, "server.sleep_delay"},
		{"negative read timeout", func(c *FileConfig) { c.Server.ReadTimeout = "-1s" }, "server.read_timeout"},
		{"status without addr", func(c *FileConfig) { c.Status.Addr = "" }, "status.addr"},
		{"disabled status without addr", func(c *FileConfig) {
			c.Status.Enabled = false
			c.Status.Addr = ""
		}, ""},
		{"bad log level", func(c *FileConfig) { c.Log.Level = "loud" }, "log.level"},
		{"negative backups", func(c *FileConfig) { c.Log.MaxBackups = -1 }, "log rotation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestToPoolConfig(t *testing.T) {
	cfg := Default()
	cfg.Pool.Name = "web"
	cfg.Pool.Workers = 6

	pc := cfg.ToPoolConfig()
	if pc.Name != "web" || pc.Size != 6 {
		t.Errorf("unexpected pool config: %+v", pc)
	}
}

func TestToServerConfig(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = ":9000"
	cfg.Server.Root = "/srv"
	cfg.Server.SleepDelay = "250ms"
	cfg.Server.ReadTimeout = ""

	sc, err := cfg.ToServerConfig()
	if err != nil {
		t.Fatalf("ToServerConfig failed: %v", err)
	}
	if sc.Addr != ":9000" || sc.Root != "/srv" {
		t.Errorf("unexpected server config: %+v", sc)
	}
	if sc.SleepDelay != 250*time.Millisecond {
		t.Errorf("expected sleep delay 250ms, got %v", sc.SleepDelay)
	}
	if sc.ReadTimeout != 10*time.Second {
		t.Errorf("expected default read timeout 10s, got %v", sc.ReadTimeout)
	}

	cfg.Server.SleepDelay = "bogus"
	if _, err := cfg.ToServerConfig(); err == nil {
		t.Error("expected error for invalid sleep delay")
	}
}

func TestBroadcastInterval(t *testing.T) {
	cfg := Default()
	cfg.Status.BroadcastInterval = "250ms"
	if d := cfg.BroadcastInterval(); d != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", d)
	}

	cfg.Status.BroadcastInterval = ""
	if d := cfg.BroadcastInterval(); d != time.Second {
		t.Errorf("expected fallback 1s, got %v", d)
	}
}

func TestToLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	cfg.Log.File = "/var/log/jobpool.log"

	lc := cfg.ToLoggerConfig()
	want := logger.Config{
		Level:      "warn",
		File:       "/var/log/jobpool.log",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
	if lc != want {
		t.Errorf("ToLoggerConfig() = %+v, want %+v", lc, want)
	}
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, "config.yaml", "pool:\n  workers: 2\nlog:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *FileConfig, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(cfg *FileConfig) {
			changes <- cfg
		})
	}()

	// Give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	// An invalid config is logged and skipped
	if err := os.WriteFile(path, []byte("pool:\n  workers: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("pool:\n  workers: 2\nlog:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case cfg := <-changes:
			if cfg.Pool.Workers <= 0 {
				t.Fatalf("invalid config was delivered: %+v", cfg.Pool)
			}
			reloaded = cfg.Log.Level == "debug"
		case <-timeout:
			t.Fatal("timeout waiting for config reload")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for Watch to return")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), "/nonexistent/dir/config.yaml", 0, func(*FileConfig) {})
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
