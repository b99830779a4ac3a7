package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobpool/internal/httpd"
	"jobpool/internal/logger"
	"jobpool/internal/worker"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Pool   PoolConfig   `yaml:"pool" json:"pool"`
	Server ServerConfig `yaml:"server" json:"server"`
	Status StatusConfig `yaml:"status" json:"status"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// PoolConfig はワーカープール設定
type PoolConfig struct {
	Name    string `yaml:"name" json:"name"`
	Workers int    `yaml:"workers" json:"workers"`
}

// ServerConfig は接続ディスパッチャ設定
type ServerConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	Root        string `yaml:"root" json:"root"`
	SleepDelay  string `yaml:"sleep_delay" json:"sleep_delay"`
	ReadTimeout string `yaml:"read_timeout" json:"read_timeout"`
}

// StatusConfig はステータス API 設定
type StatusConfig struct {
	Enabled           bool   `yaml:"enabled" json:"enabled"`
	Addr              string `yaml:"addr" json:"addr"`
	BroadcastInterval string `yaml:"broadcast_interval" json:"broadcast_interval"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Default はデフォルト設定を返す
func Default() *FileConfig {
	return &FileConfig{
		Pool: PoolConfig{
			Name:    "pool",
			Workers: 4,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:7878",
			Root:        ".",
			SleepDelay:  "5s",
			ReadTimeout: "10s",
		},
		Status: StatusConfig{
			Enabled:           true,
			Addr:              "127.0.0.1:9090",
			BroadcastInterval: "1s",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadFile は設定ファイルを読み込む
// ファイルにない項目はデフォルト値のまま残る
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return config, nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if f.Pool.Workers <= 0 {
		return fmt.Errorf("pool.workers must be greater than zero, got %d: %w", f.Pool.Workers, worker.ErrInvalidSize)
	}

	if f.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}

	durations := []struct {
		name  string
		value string
	}{
		{"server.sleep_delay", f.Server.SleepDelay},
		{"server.read_timeout", f.Server.ReadTimeout},
		{"status.broadcast_interval", f.Status.BroadcastInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative", d.name)
		}
	}

	if f.Status.Enabled && f.Status.Addr == "" {
		return fmt.Errorf("status.addr must not be empty when status is enabled")
	}

	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}

	if f.Log.MaxSizeMB < 0 || f.Log.MaxBackups < 0 || f.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation settings must be non-negative")
	}

	return nil
}

// ToPoolConfig は worker.Config に変換する
// Events と Metrics は呼び出し側で設定する
func (f *FileConfig) ToPoolConfig() worker.Config {
	return worker.Config{
		Name: f.Pool.Name,
		Size: f.Pool.Workers,
	}
}

// ToServerConfig は httpd.Config に変換する
func (f *FileConfig) ToServerConfig() (httpd.Config, error) {
	config := httpd.DefaultConfig()

	if f.Server.Addr != "" {
		config.Addr = f.Server.Addr
	}
	if f.Server.Root != "" {
		config.Root = f.Server.Root
	}
	if f.Server.SleepDelay != "" {
		d, err := time.ParseDuration(f.Server.SleepDelay)
		if err != nil {
			return config, fmt.Errorf("invalid sleep delay: %w", err)
		}
		config.SleepDelay = d
	}
	if f.Server.ReadTimeout != "" {
		d, err := time.ParseDuration(f.Server.ReadTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid read timeout: %w", err)
		}
		config.ReadTimeout = d
	}

	return config, nil
}

// BroadcastInterval はステータス配信間隔を返す（未設定・不正なら1秒）
func (f *FileConfig) BroadcastInterval() time.Duration {
	d, err := time.ParseDuration(f.Status.BroadcastInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// ToLoggerConfig は logger.Config に変換する
func (f *FileConfig) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:      f.Log.Level,
		File:       f.Log.File,
		MaxSizeMB:  f.Log.MaxSizeMB,
		MaxBackups: f.Log.MaxBackups,
		MaxAgeDays: f.Log.MaxAgeDays,
		Compress:   f.Log.Compress,
	}
}
