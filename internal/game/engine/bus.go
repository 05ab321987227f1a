package engine

import (
	"runtime/debug"

	"go.uber.org/zap"
)

// Handler receives events synchronously, in emission order.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// bus fans events out to subscribers. It is not safe for concurrent use; the
// owner of the engine serializes access.
type bus struct {
	nextID int
	subs   []subscription
	log    *zap.SugaredLogger
}

func (b *bus) subscribe(fn Handler) func() {
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	return func() {
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

func (b *bus) publish(ev Event) {
	subs := b.subs
	for _, s := range subs {
		b.deliver(s.fn, ev)
	}
}

// deliver isolates a misbehaving subscriber so the turn still resolves.
func (b *bus) deliver(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("event subscriber panicked", "event", ev.Type, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn(ev)
}
