package bus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventcore/pkg/eventcore/bus"
)

func TestPublishDeliversToTopicSubscribers(t *testing.T) {
	b := bus.New[string](bus.Config{})
	defer b.Close()

	var got []string
	b.Subscribe([]string{"orders"}, func(_ context.Context, _ string, msg string) error {
		got = append(got, msg)
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "orders", "m1"))
	require.NoError(t, b.Publish(context.Background(), "payments", "m2"))

	assert.Equal(t, []string{"m1"}, got, "only matching topics delivered")
}

func TestPublishDeliversToWildcardSubscribers(t *testing.T) {
	b := bus.New[string](bus.Config{})
	defer b.Close()

	var got []string
	b.SubscribeAll(func(_ context.Context, topic string, msg string) error {
		got = append(got, topic+":"+msg)
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "orders", "m1"))
	require.NoError(t, b.Publish(context.Background(), "payments", "m2"))

	assert.Equal(t, []string{"orders:m1", "payments:m2"}, got)
}

func TestPublishSubscriptionOrder(t *testing.T) {
	b := bus.New[int](bus.Config{})
	defer b.Close()

	var order []string
	b.SubscribeAll(func(context.Context, string, int) error {
		order = append(order, "first")
		return nil
	})
	b.Subscribe([]string{"t"}, func(context.Context, string, int) error {
		order = append(order, "second")
		return nil
	})
	b.SubscribeAll(func(context.Context, string, int) error {
		order = append(order, "third")
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "t", 1))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestPublishIsSynchronous(t *testing.T) {
	b := bus.New[int](bus.Config{})
	defer b.Close()

	settled := false
	b.Subscribe([]string{"t"}, func(context.Context, string, int) error {
		settled = true
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "t", 1))
	assert.True(t, settled, "Publish must not return before handlers settle")
}

func TestPublishJoinsSubscriberErrors(t *testing.T) {
	var hookCalls int
	b := bus.New[int](bus.Config{
		OnError: func(string, int64, error) { hookCalls++ },
	})
	defer b.Close()

	errA := errors.New("a failed")
	var bRan bool
	b.Subscribe([]string{"t"}, func(context.Context, string, int) error { return errA })
	b.Subscribe([]string{"t"}, func(context.Context, string, int) error {
		bRan = true
		return nil
	})

	err := b.Publish(context.Background(), "t", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.True(t, bRan, "one failing subscriber must not block the rest")
	assert.Equal(t, 1, hookCalls)
}

func TestPublishRecoversSubscriberPanic(t *testing.T) {
	b := bus.New[int](bus.Config{})
	defer b.Close()

	b.Subscribe([]string{"t"}, func(context.Context, string, int) error {
		panic("handler exploded")
	})

	err := b.Publish(context.Background(), "t", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler exploded")
}

func TestPublishStopsOnCancelledContext(t *testing.T) {
	b := bus.New[int](bus.Config{})
	defer b.Close()

	var calls int
	for i := 0; i < 3; i++ {
		b.Subscribe([]string{"t"}, func(context.Context, string, int) error {
			calls++
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Publish(ctx, "t", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestUnsubscribe(t *testing.T) {
	b := bus.New[int](bus.Config{})
	defer b.Close()

	var calls int
	sub := b.Subscribe([]string{"t"}, func(context.Context, string, int) error {
		calls++
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "t", 1))
	sub.Unsubscribe()
	require.NoError(t, b.Publish(context.Background(), "t", 2))

	assert.Equal(t, 1, calls)
}

func TestClosedBusRejectsPublish(t *testing.T) {
	b := bus.New[int](bus.Config{})
	b.SubscribeAll(func(context.Context, string, int) error { return nil })
	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "double close is a no-op")

	err := b.Publish(context.Background(), "t", 1)
	require.Error(t, err)
	assert.Nil(t, b.Subscribe([]string{"t"}, func(context.Context, string, int) error { return nil }))
}
