package domain

import "sync"

// Event is a notification emitted by a Game.
type Event uint8

const (
	// EventGameOver is emitted once, when the game reaches its terminal state.
	EventGameOver Event = iota + 1
)

func (e Event) String() string {
	switch e {
	case EventGameOver:
		return "GameOver"
	default:
		return "Unknown"
	}
}

// EventSink receives game events. Publish must not call back into the game.
type EventSink interface {
	Publish(Event)
}

// Bus is a fire-and-forget EventSink fanning out to subscribed handlers.
type Bus struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(Event)
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]func(Event))}
}

// Subscribe registers handler and returns a function removing it.
func (b *Bus) Subscribe(handler func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.handlers[id] = handler
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to every handler. Handlers run synchronously, outside
// the bus lock.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	hs := make([]func(Event), 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.Unlock()
	for _, h := range hs {
		h(e)
	}
}

type discard struct{}

func (discard) Publish(Event) {}
