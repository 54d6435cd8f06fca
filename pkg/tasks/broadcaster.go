package tasks

import (
	"sync"

	"github.com/entrhq/webpilot/pkg/types"
)

// DefaultEventBuffer is the per-subscriber channel capacity.
const DefaultEventBuffer = 64

// Broadcaster fans task events out to subscribers.
//
// Delivery is in publish order and at most once: a subscriber that falls
// behind loses step events rather than stalling the run. The terminal event
// is always delivered, after which the subscriber's channel is closed.
type Broadcaster struct {
	mu       sync.Mutex
	buffer   int
	subs     map[string]map[*subscription]struct{}
	finished map[string]*types.TaskEvent
}

type subscription struct {
	ch chan *types.TaskEvent
}

// NewBroadcaster creates a broadcaster with the given channel buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Broadcaster{
		buffer:   buffer,
		subs:     make(map[string]map[*subscription]struct{}),
		finished: make(map[string]*types.TaskEvent),
	}
}

// Subscribe returns a channel of events for taskID and a function that
// cancels the subscription. Subscribing to a finished task yields its
// terminal event and a closed channel.
func (b *Broadcaster) Subscribe(taskID string) (<-chan *types.TaskEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{ch: make(chan *types.TaskEvent, b.buffer)}
	if ev, ok := b.finished[taskID]; ok {
		sub.ch <- ev
		close(sub.ch)
		return sub.ch, func() {}
	}

	if b.subs[taskID] == nil {
		b.subs[taskID] = make(map[*subscription]struct{})
	}
	b.subs[taskID][sub] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[taskID]; ok {
				if _, ok := set[sub]; ok {
					delete(set, sub)
					close(sub.ch)
				}
				if len(set) == 0 {
					delete(b.subs, taskID)
				}
			}
		})
	}
	return sub.ch, cancel
}

// Publish delivers ev to the subscribers of its task without blocking.
func (b *Broadcaster) Publish(ev *types.TaskEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, done := b.finished[ev.TaskID]; done {
		return
	}

	set := b.subs[ev.TaskID]
	if !ev.IsTerminal() {
		for sub := range set {
			select {
			case sub.ch <- ev:
			default:
				// Slow subscriber, drop
			}
		}
		return
	}

	for sub := range set {
		deliverFinal(sub.ch, ev)
		close(sub.ch)
	}
	delete(b.subs, ev.TaskID)
	b.finished[ev.TaskID] = ev
}

// deliverFinal makes room for the terminal event by discarding the oldest
// buffered event when the channel is full.
func deliverFinal(ch chan *types.TaskEvent, ev *types.TaskEvent) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Forget drops what is remembered about a finished task.
func (b *Broadcaster) Forget(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.finished, taskID)
}

// Subscribers returns the number of live subscriptions for taskID.
func (b *Broadcaster) Subscribers(taskID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[taskID])
}
