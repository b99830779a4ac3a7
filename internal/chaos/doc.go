// Package chaos はワーカープールへの障害注入機能を提供する。
//
// ChaosMonkeyは対象プールに異常なジョブを定期的に投入し、
// パニック隔離やキャパシティ維持をテストするために使用される。
//
// # 障害タイプ
//
// - Panic: パニックするジョブを投入
// - Stall: ワーカーを長時間占有するジョブを投入
// - Burst: 空ジョブを大量に投入してキューを膨らませる
//
// # 使用例
//
//	config := chaos.DefaultConfig()
//	config.Interval = 500 * time.Millisecond
//	config.JobsPerAttack = 2
//
//	monkey := chaos.New(pool, config)
//	monkey.Start(ctx)
//	defer monkey.Stop()
package chaos
