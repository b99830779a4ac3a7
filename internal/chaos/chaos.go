package chaos

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"jobpool/internal/events"
	"jobpool/internal/logger"
	"jobpool/internal/worker"
)

const scope = "chaos"

// AttackType は障害の種類を表す
type AttackType int

const (
	AttackPanic AttackType = iota
	AttackStall
	AttackBurst
)

func (a AttackType) String() string {
	switch a {
	case AttackPanic:
		return "panic"
	case AttackStall:
		return "stall"
	case AttackBurst:
		return "burst"
	default:
		return "unknown"
	}
}

// ParseAttackType は名前から攻撃タイプを返す
func ParseAttackType(name string) (AttackType, bool) {
	for _, a := range []AttackType{AttackPanic, AttackStall, AttackBurst} {
		if a.String() == name {
			return a, true
		}
	}
	return 0, false
}

// Target は障害ジョブの投入先
type Target interface {
	Name() string
	Execute(job worker.Job) error
}

// Config はChaosMonkeyの設定
type Config struct {
	Interval      time.Duration // 攻撃間隔
	JobsPerAttack int           // 1回の攻撃で投入するジョブ数（Panic/Stall）
	AttackTypes   []AttackType  // 有効な攻撃タイプ
	StallDuration time.Duration // Stallジョブがワーカーを占有する時間
	BurstSize     int           // Burst攻撃で投入する空ジョブ数
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Interval:      5 * time.Second,
		JobsPerAttack: 1,
		AttackTypes:   []AttackType{AttackPanic, AttackStall, AttackBurst},
		StallDuration: 100 * time.Millisecond,
		BurstSize:     100,
	}
}

// Stats はカオス攻撃の統計情報
type Stats struct {
	TotalAttacks uint64            `json:"total_attacks"`
	InjectedJobs uint64            `json:"injected_jobs"`
	RejectedJobs uint64            `json:"rejected_jobs"`
	ByType       map[string]uint64 `json:"attacks_by_type"`
}

// Monkey はカオスエンジニアリングを実行する
type Monkey struct {
	config   Config
	target   Target
	eventBus *events.Bus

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	injected atomic.Uint64
	rejected atomic.Uint64

	mu           sync.RWMutex
	attackCount  uint64
	attackByType map[AttackType]uint64
	lastAttack   time.Time
}

// New は新しいChaosMonkeyを作成する
func New(target Target, config Config) *Monkey {
	return &Monkey{
		config:       config,
		target:       target,
		attackByType: make(map[AttackType]uint64),
	}
}

// SetEventBus はイベントバスを設定する
func (m *Monkey) SetEventBus(bus *events.Bus) {
	m.eventBus = bus
}

// Start はカオス注入を開始する
func (m *Monkey) Start(ctx context.Context) {
	if m.running.Swap(true) {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.attackLoop(ctx)

	m.mu.RLock()
	logger.Info(scope, "ChaosMonkey started (target: %s, interval: %v)", m.target.Name(), m.config.Interval)
	m.mu.RUnlock()
}

// Stop はカオス注入を停止する
// 投入済みのジョブは対象プールに残る
func (m *Monkey) Stop() {
	if !m.running.Swap(false) {
		return
	}

	m.cancel()
	m.wg.Wait()

	logger.Info(scope, "ChaosMonkey stopped (total attacks: %d)", m.AttackCount())
}

// attackLoop は定期的に攻撃を実行する
func (m *Monkey) attackLoop(ctx context.Context) {
	defer m.wg.Done()

	m.mu.RLock()
	interval := m.config.Interval
	m.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Attack()
		}
	}
}

// Attack は攻撃を1回実行する
func (m *Monkey) Attack() {
	m.mu.RLock()
	config := m.config
	m.mu.RUnlock()

	attackType := selectAttackType(config.AttackTypes)

	var jobs []worker.Job
	switch attackType {
	case AttackPanic:
		jobs = repeat(config.JobsPerAttack, panicJob)
	case AttackStall:
		d := config.StallDuration
		jobs = repeat(config.JobsPerAttack, func() { time.Sleep(d) })
	case AttackBurst:
		jobs = repeat(config.BurstSize, func() {})
	}

	sent := 0
	for _, job := range jobs {
		if err := m.target.Execute(job); err != nil {
			m.rejected.Add(1)
			if errors.Is(err, worker.ErrPoolClosed) {
				logger.Warn(scope, "ChaosMonkey: %s is closed, %s attack aborted", m.target.Name(), attackType)
				break
			}
			logger.Warn(scope, "ChaosMonkey: failed to inject %s job: %v", attackType, err)
			continue
		}
		sent++
	}
	if sent == 0 {
		return
	}
	m.injected.Add(uint64(sent))

	logger.Warn(scope, "ChaosMonkey: injected %d %s job(s) into %s", sent, attackType, m.target.Name())
	m.eventBus.Publish(events.NewChaosInjectedEvent(m.target.Name(), attackType.String(), sent))

	m.mu.Lock()
	m.attackCount++
	m.attackByType[attackType]++
	m.lastAttack = time.Now()
	m.mu.Unlock()
}

func panicJob() {
	panic("chaos: injected panic")
}

func repeat(n int, job worker.Job) []worker.Job {
	if n < 1 {
		n = 1
	}
	jobs := make([]worker.Job, n)
	for i := range jobs {
		jobs[i] = job
	}
	return jobs
}

// selectAttackType は攻撃タイプをランダムに選択する
func selectAttackType(types []AttackType) AttackType {
	if len(types) == 0 {
		return AttackPanic
	}
	return types[rand.IntN(len(types))]
}

// IsRunning は実行中かどうかを返す
func (m *Monkey) IsRunning() bool {
	return m.running.Load()
}

// AttackCount は攻撃回数を返す
func (m *Monkey) AttackCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attackCount
}

// LastAttack は最後に攻撃した時刻を返す
func (m *Monkey) LastAttack() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAttack
}

// SetConfig は設定を更新する
// Interval の変更は次回の Start から反映される
func (m *Monkey) SetConfig(config Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}

// Stats は攻撃統計を返す
func (m *Monkey) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[string]uint64)
	for t, count := range m.attackByType {
		byType[t.String()] = count
	}

	return Stats{
		TotalAttacks: m.attackCount,
		InjectedJobs: m.injected.Load(),
		RejectedJobs: m.rejected.Load(),
		ByType:       byType,
	}
}
