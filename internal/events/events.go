// Package events is the fan-out notification hub shared by the host and
// the loaded mods. Delivery is synchronous on the caller's goroutine with
// per-subscriber failure isolation: one handler's error or panic never
// reaches the others.
package events

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Event is one notification. Payload is opaque to the manager.
type Event struct {
	Kind    string
	Payload interface{}
}

// Handler receives one event. A returned error is logged against the
// handler's owning mod; it never interrupts the broadcast.
type Handler func(Event) error

type subscription struct {
	id      uint64
	owner   string
	handler Handler
}

// Manager keeps per-kind handler lists ordered by registration time.
type Manager struct {
	mu     sync.Mutex
	nextID uint64
	byKind map[string][]subscription
	logger *log.Logger
}

// New returns an empty manager.
func New(logger *log.Logger) *Manager {
	return &Manager{
		byKind: make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for an event kind on behalf of a mod and
// returns its cancel function. Both may be called at any time, including
// from inside a handler for the same kind: the in-flight broadcast keeps
// iterating the snapshot it started with.
func (m *Manager) Subscribe(kind, owner string, h Handler) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.byKind[kind] = append(m.byKind[kind], subscription{id: id, owner: owner, handler: h})
	return func() { m.unsubscribe(kind, id) }
}

func (m *Manager) unsubscribe(kind string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.byKind[kind]
	for i, s := range subs {
		if s.id == id {
			// Copy-on-remove so a snapshot taken by Publish stays intact.
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			m.byKind[kind] = next
			return
		}
	}
}

// Publish delivers the event to every subscriber of its kind in
// registration order. A handler that errors or panics is logged against
// its owning mod and the broadcast continues.
func (m *Manager) Publish(ev Event) {
	m.mu.Lock()
	snapshot := m.byKind[ev.Kind]
	m.mu.Unlock()

	for _, sub := range snapshot {
		m.invoke(ev, sub)
	}
}

func (m *Manager) invoke(ev Event, sub subscription) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("event handler panicked",
				"mod", sub.owner, "event", ev.Kind, "panic", fmt.Sprintf("%v", r))
		}
	}()
	if err := sub.handler(ev); err != nil {
		m.logger.Error("event handler failed",
			"mod", sub.owner, "event", ev.Kind, "error", err)
	}
}

// Subscribers returns how many handlers are registered for a kind.
func (m *Manager) Subscribers(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byKind[kind])
}
