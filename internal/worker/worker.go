package worker

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"jobpool/internal/events"
	"jobpool/internal/logger"
)

// worker はキューからジョブを取り出して実行するゴルーチン
type worker struct {
	id    int
	scope string
	pool  *Pool
	done  chan struct{}
}

// newWorker はワーカーを作成し、ゴルーチンを起動する
func newWorker(id int, p *Pool, ready *sync.WaitGroup) *worker {
	w := &worker{
		id:    id,
		scope: fmt.Sprintf("%s/worker-%d", p.name, id),
		pool:  p,
		done:  make(chan struct{}),
	}
	go w.loop(ready)
	return w
}

// loop はキューがクローズされるまでジョブを実行し続ける
func (w *worker) loop(ready *sync.WaitGroup) {
	defer close(w.done)

	w.pool.running.Add(1)
	defer w.pool.running.Add(-1)

	w.pool.events.Publish(events.NewWorkerStartedEvent(w.pool.name, w.id))
	ready.Done()

	for {
		job, ok := w.pool.queue.Receive()
		if !ok {
			break
		}
		logger.Debug(w.scope, "thread %d starts a new job", w.id)
		w.run(job)
	}

	logger.Info(w.scope, "thread %d is about to exit", w.id)
	w.pool.events.Publish(events.NewWorkerStoppedEvent(w.pool.name, w.id))
}

// run はジョブを1つ実行する。panic はここで回収し、ワーカーは継続する
func (w *worker) run(job Job) {
	m := w.pool.metrics
	start := time.Now()
	m.JobStarted()

	defer func() {
		r := recover()
		if r == nil {
			m.RecordSuccess(time.Since(start))
			return
		}

		m.RecordFailure(time.Since(start))
		logger.Error(w.scope, "job panicked: %v\n%s", r, debug.Stack())
		w.pool.events.Publish(events.NewJobFailedEvent(w.pool.name, w.id, fmt.Errorf("panic: %v", r)))
		w.notifyPanic(r)
	}()

	job()
}

// notifyPanic は PanicHandler を呼ぶ。ハンドラ自身の panic も回収する
func (w *worker) notifyPanic(r any) {
	if w.pool.onPanic == nil {
		return
	}
	defer func() {
		if hr := recover(); hr != nil {
			logger.Error(w.scope, "panic handler panicked: %v", hr)
		}
	}()
	w.pool.onPanic(w.id, r)
}

// join はワーカーの終了を待つ
func (w *worker) join() {
	<-w.done
}
