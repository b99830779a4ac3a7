package scenario

import (
	"slices"
	"time"

	"jobpool/internal/chaos"
)

// BasicScenario は基本的なシナリオ設定を返す
// カオス注入なし、純粋な負荷テスト
func BasicScenario() Config {
	return Config{
		Name:          "basic",
		Description:   "Basic load test without chaos injection",
		Duration:      10 * time.Second,
		ServerWorkers: 4,
		ClientWorkers: 10,
		MissingRatio:  0.1,
		EnableChaos:   false,
	}
}

// ResilienceScenario は耐障害性テストシナリオを返す
// Panic攻撃のみ
func ResilienceScenario() Config {
	return Config{
		Name:          "resilience",
		Description:   "Resilience test with panicking jobs",
		Duration:      15 * time.Second,
		ServerWorkers: 4,
		ClientWorkers: 10,
		MissingRatio:  0.1,
		EnableChaos:   true,
		ChaosInterval: 1 * time.Second,
		JobsPerAttack: 2,
		AttackTypes:   []chaos.AttackType{chaos.AttackPanic},
	}
}

// StallScenario はワーカー占有シナリオを返す
// Stall攻撃のみ
func StallScenario() Config {
	return Config{
		Name:          "stall",
		Description:   "Worker stall injection test",
		Duration:      10 * time.Second,
		ServerWorkers: 4,
		ClientWorkers: 10,
		MissingRatio:  0.1,
		EnableChaos:   true,
		ChaosInterval: 1 * time.Second,
		JobsPerAttack: 2,
		StallDuration: 500 * time.Millisecond,
		AttackTypes:   []chaos.AttackType{chaos.AttackStall},
	}
}

// StressScenario は高負荷シナリオを返す
// 多数のワーカー、複数の攻撃タイプ
func StressScenario() Config {
	return Config{
		Name:          "stress",
		Description:   "High load stress test with multiple attack types",
		Duration:      20 * time.Second,
		ServerWorkers: 8,
		ClientWorkers: 50,
		MissingRatio:  0.2,
		SleepRatio:    0.05,
		SleepDelay:    100 * time.Millisecond,
		EnableChaos:   true,
		ChaosInterval: 500 * time.Millisecond,
		JobsPerAttack: 4,
		StallDuration: 200 * time.Millisecond,
		BurstSize:     500,
		AttackTypes:   []chaos.AttackType{chaos.AttackPanic, chaos.AttackStall, chaos.AttackBurst},
	}
}

// QuickScenario はクイックテスト用シナリオを返す
// 短時間での動作確認用
func QuickScenario() Config {
	return Config{
		Name:          "quick",
		Description:   "Quick test for verification",
		Duration:      5 * time.Second,
		ServerWorkers: 2,
		ClientWorkers: 5,
		MissingRatio:  0.1,
		EnableChaos:   true,
		ChaosInterval: 1 * time.Second,
		JobsPerAttack: 1,
		AttackTypes:   []chaos.AttackType{chaos.AttackPanic, chaos.AttackBurst},
	}
}

var presets = map[string]func() Config{
	"basic":      BasicScenario,
	"resilience": ResilienceScenario,
	"stall":      StallScenario,
	"stress":     StressScenario,
	"quick":      QuickScenario,
}

// GetPreset は名前からプリセットシナリオを取得する
func GetPreset(name string) (Config, bool) {
	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
