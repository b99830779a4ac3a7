package queue

import (
	"errors"
	"sync"
)

// ErrClosed はクローズ済みのキューへの送信で返される
var ErrClosed = errors.New("queue: send on closed queue")

// compactThreshold を超えた先頭の消費済み領域は詰め直す
const compactThreshold = 64

// Queue は上限なしの MPMC FIFO キュー
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	head   int
	closed bool
}

// New は新しいキューを作成する
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send は要素を末尾に追加する。呼び出し元をブロックしない
func (q *Queue[T]) Send(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.items = append(q.items, v)
	q.cond.Signal()
	return nil
}

// Receive は先頭の要素を取り出す
// 要素がなければブロックし、クローズ済みかつ空なら ok=false を返す
func (q *Queue[T]) Receive() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == len(q.items) && !q.closed {
		q.cond.Wait()
	}

	if q.head == len(q.items) {
		return v, false
	}

	v = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return v, true
}

// Close はキューをクローズし、待機中の受信者をすべて起こす
// 残っている要素は引き続き Receive で取り出せる
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Closed はキューがクローズ済みかを返す
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len は未取得の要素数を返す
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
