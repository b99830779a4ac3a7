// Package main is a load generator for the jobpool dispatcher.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobpool/internal/client"
	"jobpool/internal/logger"
	"jobpool/internal/metrics"
	"jobpool/internal/scenario"
)

func main() {
	var (
		addr         = flag.String("addr", "127.0.0.1:7878", "接続先アドレス")
		workers      = flag.Int("workers", 0, "並列数 (0でCPU数)")
		requests     = flag.Uint64("requests", 1000, "リクエスト数 (0なら -duration の間実行)")
		duration     = flag.Duration("duration", 10*time.Second, "実行時間 (-requests 0 のとき)")
		missingRatio = flag.Float64("missing-ratio", 0.1, "404 になるリクエストの比率")
		sleepRatio   = flag.Float64("sleep-ratio", 0, "/sleep リクエストの比率")
		timeout      = flag.Duration("timeout", 10*time.Second, "1リクエストのタイムアウト")
		logLevel     = flag.String("log-level", "warn", "ログレベル")
		presetName   = flag.String("scenario", "", "プロセス内でディスパッチャーを起動して実行するプリセットシナリオ")
		listPresets  = flag.Bool("list-presets", false, "利用可能なプリセットを表示")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `loadgen - load generator for the jobpool dispatcher

Usage:
  loadgen [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # 起動中のディスパッチャーに1000リクエスト
  loadgen -addr 127.0.0.1:7878 -requests 1000

  # 30秒間、/sleep を混ぜて実行
  loadgen -requests 0 -duration 30s -sleep-ratio 0.1

  # プロセス内でシナリオを実行
  loadgen -scenario resilience
`)
	}

	flag.Parse()

	if *listPresets {
		fmt.Println("利用可能なプリセットシナリオ:")
		for _, name := range scenario.ListPresets() {
			cfg, _ := scenario.GetPreset(name)
			fmt.Printf("  %-12s %s\n", name, cfg.Description)
		}
		return
	}

	if err := logger.Setup(logger.Config{Level: *logLevel}); err != nil {
		logger.Error("", "ログ設定エラー: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *presetName != "" {
		if err := runScenario(ctx, *presetName, *workers, *duration); err != nil {
			logger.Error("", "シナリオ実行エラー: %v", err)
			stop()
			os.Exit(1)
		}
		return
	}

	if *missingRatio < 0 || *sleepRatio < 0 || *missingRatio+*sleepRatio > 1 {
		logger.Error("", "比率は 0〜1 の範囲で、合計 1 以下にしてください")
		stop()
		os.Exit(1)
	}

	cl, err := client.New(client.Config{
		Addr:         *addr,
		NumWorkers:   *workers,
		MissingRatio: *missingRatio,
		SleepRatio:   *sleepRatio,
		Timeout:      *timeout,
	})
	if err != nil {
		logger.Error("", "クライアント作成エラー: %v", err)
		stop()
		os.Exit(1)
	}

	var snap *metrics.Snapshot
	if *requests > 0 {
		snap = cl.RunRequests(ctx, *requests)
	} else {
		snap = cl.RunFor(ctx, *duration)
	}

	printReport(snap)
}

// printReport はスナップショットを表示する
func printReport(snap *metrics.Snapshot) {
	fmt.Println("Load Test Report")
	fmt.Println("================")
	fmt.Printf("Completed:   %d\n", snap.Completed)
	fmt.Printf("Failed:      %d (%.2f%%)\n", snap.Failed, snap.FailureRate*100)
	fmt.Printf("Throughput:  %.2f req/s\n", snap.OverallThroughput)
	fmt.Printf("Avg latency: %v\n", snap.AverageLatency)
	fmt.Printf("P99 latency: %v\n", snap.P99Latency)
	fmt.Printf("Elapsed:     %v\n", snap.Elapsed.Round(time.Millisecond))
}

// runScenario はプリセットシナリオを実行してレポートを表示する
func runScenario(ctx context.Context, name string, workers int, duration time.Duration) error {
	cfg, ok := scenario.GetPreset(name)
	if !ok {
		return fmt.Errorf("不明なプリセット: %s (利用可能: %v)", name, scenario.ListPresets())
	}

	// フラグでオーバーライド
	if workers > 0 {
		cfg.ClientWorkers = workers
	}
	if isFlagSet("duration") {
		cfg.Duration = duration
	}

	fmt.Printf("Scenario: %s (%s)\n", cfg.Name, cfg.Description)
	fmt.Printf("Duration: %v, Server workers: %d, Client workers: %d, Chaos: %v\n",
		cfg.Duration, cfg.ServerWorkers, cfg.ClientWorkers, cfg.EnableChaos)

	result, err := scenario.New(cfg).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(result.Report())
	return nil
}

// isFlagSet はフラグが明示的に指定されたかを返す
func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
