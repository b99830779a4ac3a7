// Package main is the entry point for the jobpool server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"jobpool/internal/api"
	"jobpool/internal/config"
	"jobpool/internal/events"
	"jobpool/internal/httpd"
	"jobpool/internal/logger"
	"jobpool/internal/metrics"
	"jobpool/internal/worker"
)

var (
	version = "dev"
)

// overrides はコマンドラインで明示的に指定された値
type overrides struct {
	set        map[string]bool
	workers    int
	addr       string
	root       string
	statusAddr string
	logLevel   string
	noStatus   bool
}

func main() {
	var (
		configFile  = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		workers     = flag.Int("workers", 4, "ワーカー数 (1以上)")
		addr        = flag.String("addr", "127.0.0.1:7878", "接続を受け付けるアドレス")
		root        = flag.String("root", ".", "hello.html / 404.html のディレクトリ")
		statusAddr  = flag.String("status-addr", "127.0.0.1:9090", "ステータス API のアドレス")
		noStatus    = flag.Bool("no-status", false, "ステータス API を無効化")
		logLevel    = flag.String("log-level", "info", "ログレベル (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "バージョンを表示")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `jobpool - fixed-size worker pool server

Usage:
  jobpool [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # 8 ワーカーで起動
  jobpool --workers 8

  # 設定ファイルから起動（変更時にログレベルを再読み込み）
  jobpool --config jobpool.yaml

  # ステータス API なしで起動
  jobpool --no-status --addr :7878
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("jobpool version %s\n", version)
		return
	}

	ov := overrides{
		set:        make(map[string]bool),
		workers:    *workers,
		addr:       *addr,
		root:       *root,
		statusAddr: *statusAddr,
		logLevel:   *logLevel,
		noStatus:   *noStatus,
	}
	flag.Visit(func(f *flag.Flag) { ov.set[f.Name] = true })

	cfg, err := buildConfig(*configFile, ov)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	if err := logger.Setup(cfg.ToLoggerConfig()); err != nil {
		logger.Error("", "ログ設定エラー: %v", err)
		os.Exit(1)
	}

	if err := run(cfg, *configFile); err != nil {
		logger.Error("", "実行エラー: %v", err)
		os.Exit(1)
	}
}

// buildConfig は設定を構築する
// 優先順位: フラグ > 設定ファイル > デフォルト
func buildConfig(configFile string, ov overrides) (*config.FileConfig, error) {
	cfg := config.Default()

	if configFile != "" {
		fileConfig, err := config.LoadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		cfg = fileConfig
	}

	if ov.set["workers"] {
		cfg.Pool.Workers = ov.workers
	}
	if ov.set["addr"] {
		cfg.Server.Addr = ov.addr
	}
	if ov.set["root"] {
		cfg.Server.Root = ov.root
	}
	if ov.set["status-addr"] {
		cfg.Status.Addr = ov.statusAddr
	}
	if ov.set["no-status"] {
		cfg.Status.Enabled = !ov.noStatus
	}
	if ov.set["log-level"] {
		cfg.Log.Level = ov.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定検証エラー: %w", err)
	}
	return cfg, nil
}

// run はプールとサーバーを起動し、シグナルを受けるまで動作する
// どの経路で戻ってもプールは drain してから停止する
func run(cfg *config.FileConfig, configFile string) error {
	fmt.Println("jobpool - fixed-size worker pool server")
	fmt.Println("=======================================")
	fmt.Printf("Workers: %d, Listen: %s\n", cfg.Pool.Workers, cfg.Server.Addr)
	if cfg.Status.Enabled {
		fmt.Printf("Status API: http://%s/api/status\n", cfg.Status.Addr)
	}
	fmt.Println("=======================================")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	defer bus.Close()

	poolConfig := cfg.ToPoolConfig()
	poolConfig.Events = bus
	poolConfig.Metrics = metrics.New()

	pool, err := worker.NewWithConfig(poolConfig)
	if err != nil {
		return fmt.Errorf("プール作成エラー: %w", err)
	}
	defer pool.Shutdown()

	serverConfig, err := cfg.ToServerConfig()
	if err != nil {
		return fmt.Errorf("設定変換エラー: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpd.New(serverConfig, pool).Serve(gctx)
	})

	if cfg.Status.Enabled {
		g.Go(func() error {
			return api.NewServer(cfg.Status.Addr, pool, bus, cfg.BroadcastInterval()).Start(gctx)
		})
	}

	if configFile != "" {
		current := cfg.Pool.Workers
		g.Go(func() error {
			return config.Watch(gctx, configFile, config.DefaultDebounce, func(next *config.FileConfig) {
				applyReload(next, current)
			})
		})
	}

	err = g.Wait()

	if ctx.Err() != nil {
		fmt.Println("\n中断シグナルを受信、キューを処理してから終了します...")
	}
	logger.Info("", "Shutting down, %d jobs queued", pool.QueueLen())

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// applyReload は再読み込みした設定のうち実行中に変更できる項目を反映する
func applyReload(next *config.FileConfig, workers int) {
	level, err := logger.ParseLevel(next.Log.Level)
	if err == nil {
		logger.Default.SetLevel(level)
		logger.Info("config", "Log level set to %s", level)
	}

	if next.Pool.Workers != workers {
		logger.Warn("config", "pool.workers changed to %d; restart required (running with %d)", next.Pool.Workers, workers)
	}
}
