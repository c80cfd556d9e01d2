package bot

import (
	"context"
	"sync"
)

// queue runs events for each chat on that chat's own goroutine, in the order
// they were pushed. Different chats proceed independently.
type queue struct {
	ctx    context.Context
	handle func(context.Context, Event)
	size   int

	mu     sync.RWMutex
	chats  map[int64]chan Event
	closed bool
	wg     sync.WaitGroup
}

func newQueue(ctx context.Context, size int, handle func(context.Context, Event)) *queue {
	return &queue{
		ctx:    ctx,
		handle: handle,
		size:   size,
		chats:  make(map[int64]chan Event),
	}
}

// push enqueues ev, blocking while the chat's buffer is full. It reports
// false once the queue is closed.
func (q *queue) push(ev Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}

	ch, ok := q.chats[ev.ChatID]
	if !ok {
		q.mu.RUnlock()
		ch = q.open(ev.ChatID)
		q.mu.RLock()
		if q.closed || ch == nil {
			return false
		}
	}

	select {
	case ch <- ev:
		return true
	case <-q.ctx.Done():
		return false
	}
}

func (q *queue) open(chatID int64) chan Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	ch, ok := q.chats[chatID]
	if !ok {
		ch = make(chan Event, q.size)
		q.chats[chatID] = ch
		q.wg.Add(1)
		go q.worker(ch)
	}
	return ch
}

func (q *queue) worker(ch <-chan Event) {
	defer q.wg.Done()
	for ev := range ch {
		q.handle(q.ctx, ev)
	}
}

// close stops accepting events and waits for queued ones to finish.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, ch := range q.chats {
		close(ch)
	}
	q.mu.Unlock()
	q.wg.Wait()
}
