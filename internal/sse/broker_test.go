package sse

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(nil, 0)
	defer b.Close()

	assert.Equal(t, 0, b.ClientCount())
	ch := b.Subscribe()
	assert.Equal(t, 1, b.ClientCount())
	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.ClientCount())

	_, ok := <-ch
	assert.False(t, ok, "unsubscribed channel should be closed")
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(nil, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventItemsChanged, Data: map[string]string{"id": "item-1"}})
	b.Publish(Event{Type: EventViewChanged, Data: "resume"})

	first := receive(t, ch)
	assert.Contains(t, first, "id: 1\n")
	assert.Contains(t, first, "event: items.changed\n")
	assert.Contains(t, first, `data: {"id":"item-1"}`)
	assert.True(t, strings.HasSuffix(first, "\n\n"))

	second := receive(t, ch)
	assert.Contains(t, second, "id: 2\n")
	assert.Contains(t, second, `data: "resume"`)
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	b := NewBroker(nil, 0)
	defer b.Close()
	slow := b.Subscribe()
	fast := b.Subscribe()

	for i := 0; i < clientBuffer+10; i++ {
		b.Publish(Event{Type: EventCoachChanged, Data: i})
		receive(t, fast)
	}
	assert.Len(t, slow, clientBuffer)
}

func TestUnmarshalableEventIsSkipped(t *testing.T) {
	b := NewBroker(nil, 0)
	defer b.Close()
	ch := b.Subscribe()

	b.Publish(Event{Type: "bad", Data: make(chan int)})
	b.Publish(Event{Type: EventBannerChanged, Data: nil})

	msg := receive(t, ch)
	assert.Contains(t, msg, "event: banner.changed")
	assert.Contains(t, msg, "id: 1\n")
}

func TestCloseClosesClients(t *testing.T) {
	b := NewBroker(nil, 0)
	ch := b.Subscribe()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.ClientCount())

	late := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
	b.Publish(Event{Type: EventItemsChanged})
	b.Close()
}

// syncBuffer lets the test read what Stream wrote from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestStreamWritesEvents(t *testing.T) {
	b := NewBroker(nil, 10*time.Millisecond)
	defer b.Close()

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Stream(ctx, bufio.NewWriter(out)) }()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, time.Millisecond)
	b.Publish(Event{Type: EventChatAppended, Data: map[string]string{"role": "model"}})

	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, "event: chat.appended") && strings.Contains(s, ": ping")
	}, time.Second, time.Millisecond)
	assert.True(t, strings.HasPrefix(out.String(), ": connected\n\n"))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, time.Millisecond)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestStreamStopsOnWriteError(t *testing.T) {
	b := NewBroker(nil, 0)
	defer b.Close()

	err := b.Stream(context.Background(), bufio.NewWriter(failingWriter{}))
	require.Error(t, err)
	assert.Equal(t, 0, b.ClientCount())
}

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}
