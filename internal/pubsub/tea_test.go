package pubsub

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_DeliversEvent(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(LogEntryEvent, "theme switched")

	msg := ListenCmd(ctx, ch)()

	event, ok := msg.(Event[string])
	require.True(t, ok, "msg should be Event[string]")
	require.Equal(t, "theme switched", event.Payload)
	require.Equal(t, LogEntryEvent, event.Type)
}

func TestListenCmd_NilOnCancelledContext(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)

	cancel()
	time.Sleep(20 * time.Millisecond) // Wait for the release goroutine

	msg := ListenCmd(ctx, ch)()
	require.Nil(t, msg, "should return nil when context is cancelled")
}

func TestListenCmd_NilOnClosedChannel(t *testing.T) {
	ch := make(chan Event[string])
	close(ch)

	msg := ListenCmd(context.Background(), ch)()
	require.Nil(t, msg, "should return nil when channel is closed")
}

func TestContinuousListener_DrainsInOrder(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewContinuousListener(ctx, broker)

	for i := 1; i <= 3; i++ {
		broker.Publish(LogEntryEvent, fmt.Sprintf("entry %d", i))
	}

	// Each Listen call hands over the next buffered event
	for i := 1; i <= 3; i++ {
		msg := listener.Listen()()
		event, ok := msg.(Event[string])
		require.True(t, ok, "msg should be Event[string]")
		require.Equal(t, fmt.Sprintf("entry %d", i), event.Payload)
	}
}
