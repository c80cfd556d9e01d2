package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PreservesPerChatOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got = map[int64][]string{}
	)
	q := newQueue(context.Background(), 2, func(_ context.Context, ev Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		got[ev.ChatID] = append(got[ev.ChatID], ev.Text)
		mu.Unlock()
	})

	want := []string{"a", "b", "c", "d", "e", "f"}
	for _, s := range want {
		require.True(t, q.push(Event{ChatID: 1, Text: s}))
		require.True(t, q.push(Event{ChatID: 2, Text: s}))
	}
	q.close()

	assert.Equal(t, want, got[1])
	assert.Equal(t, want, got[2])
	assert.False(t, q.push(Event{ChatID: 1}))
	q.close()
}

func TestQueue_ChatsRunIndependently(t *testing.T) {
	block := make(chan struct{})
	done := make(chan int64, 2)
	q := newQueue(context.Background(), 1, func(_ context.Context, ev Event) {
		if ev.ChatID == 1 {
			<-block
		}
		done <- ev.ChatID
	})

	q.push(Event{ChatID: 1})
	q.push(Event{ChatID: 2})

	select {
	case id := <-done:
		assert.Equal(t, int64(2), id)
	case <-time.After(time.Second):
		t.Fatal("chat 2 was blocked by chat 1")
	}
	close(block)
	q.close()
}

func TestQueue_PushGivesUpWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	q := newQueue(ctx, 1, func(context.Context, Event) { <-block })

	require.True(t, q.push(Event{ChatID: 1})) // taken by the worker
	require.True(t, q.push(Event{ChatID: 1})) // fills the buffer

	res := make(chan bool)
	go func() { res <- q.push(Event{ChatID: 1}) }()
	cancel()

	select {
	case ok := <-res:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("push did not return after cancel")
	}
	close(block)
	q.close()
}
