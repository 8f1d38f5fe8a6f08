// Package bus provides synchronous pub/sub fan-out with an explicit
// delivery contract: within a single publisher, messages are delivered to
// every matching subscriber in publish order, and Publish does not return
// until every subscriber has settled. Delivery is at-least-once per
// subscriber; there is no buffering and no cross-publisher ordering.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Handler receives a published message. A non-nil error is reported back to
// the publisher (joined with errors from other subscribers) and to the
// configured OnError hook; it does not stop delivery to other subscribers.
type Handler[T any] func(ctx context.Context, topic string, msg T) error

// Config configures bus behavior.
type Config struct {
	// OnError is called when a handler returns an error or panics.
	OnError func(topic string, subscriberID int64, err error)
}

// Bus is an in-memory, synchronous fan-out bus. Subscriptions are either
// topic-keyed or wildcard (all topics).
type Bus[T any] struct {
	config Config

	mu        sync.RWMutex
	byTopic   map[string]map[int64]*Subscription[T]
	wildcards map[int64]*Subscription[T]

	nextID atomic.Int64
	closed atomic.Bool
}

// Subscription represents an active subscription.
type Subscription[T any] struct {
	id      int64
	topics  []string // empty = all topics
	handler Handler[T]
	bus     *Bus[T]
}

// New creates a new bus.
func New[T any](config Config) *Bus[T] {
	return &Bus[T]{
		config:    config,
		byTopic:   make(map[string]map[int64]*Subscription[T]),
		wildcards: make(map[int64]*Subscription[T]),
	}
}

// Subscribe registers a handler for specific topics.
func (b *Bus[T]) Subscribe(topics []string, handler Handler[T]) *Subscription[T] {
	return b.subscribe(topics, handler)
}

// SubscribeAll registers a handler for every topic.
func (b *Bus[T]) SubscribeAll(handler Handler[T]) *Subscription[T] {
	return b.subscribe(nil, handler)
}

func (b *Bus[T]) subscribe(topics []string, handler Handler[T]) *Subscription[T] {
	if b.closed.Load() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription[T]{
		id:      b.nextID.Add(1),
		topics:  topics,
		handler: handler,
		bus:     b,
	}

	if len(topics) == 0 {
		b.wildcards[sub.id] = sub
	} else {
		for _, t := range topics {
			if b.byTopic[t] == nil {
				b.byTopic[t] = make(map[int64]*Subscription[T])
			}
			b.byTopic[t][sub.id] = sub
		}
	}

	return sub
}

// Publish delivers msg to every subscriber matching topic, inline on the
// caller's goroutine. Subscribers run in subscription order. The returned
// error joins all subscriber errors; a nil return means every subscriber
// settled cleanly.
func (b *Bus[T]) Publish(ctx context.Context, topic string, msg T) error {
	if b.closed.Load() {
		return errors.New("bus is closed")
	}

	b.mu.RLock()
	subs := b.matching(topic)
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		err := b.deliver(ctx, sub, topic, msg)
		if err != nil {
			errs = append(errs, err)
			if b.config.OnError != nil {
				b.config.OnError(topic, sub.id, err)
			}
		}
	}

	return errors.Join(errs...)
}

// deliver invokes a single handler, converting panics into errors so one
// subscriber cannot take down the publisher.
func (b *Bus[T]) deliver(ctx context.Context, sub *Subscription[T], topic string, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return sub.handler(ctx, topic, msg)
}

// matching returns subscriptions for a topic in stable subscription order.
func (b *Bus[T]) matching(topic string) []*Subscription[T] {
	subs := make([]*Subscription[T], 0, len(b.wildcards)+len(b.byTopic[topic]))
	for _, sub := range b.byTopic[topic] {
		subs = append(subs, sub)
	}
	for _, sub := range b.wildcards {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}

// Close shuts down the bus. Subsequent publishes fail; subscriptions are
// released.
func (b *Bus[T]) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byTopic = make(map[string]map[int64]*Subscription[T])
	b.wildcards = make(map[int64]*Subscription[T])
	return nil
}

// Unsubscribe removes the subscription.
func (s *Subscription[T]) Unsubscribe() {
	if s == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	delete(s.bus.wildcards, s.id)
	for _, t := range s.topics {
		if topicSubs, ok := s.bus.byTopic[t]; ok {
			delete(topicSubs, s.id)
		}
	}
}
