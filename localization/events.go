package localization

import (
	"sync"

	"go.uber.org/atomic"

	"go.viam.com/markernav/vision/aruco"
)

// EventKind tells what happened to a marker.
type EventKind int

const (
	// MarkerCreated is published the first time a marker id is registered.
	MarkerCreated EventKind = iota
	// MarkerRefined is published for each later observation of a known marker.
	MarkerRefined
)

func (k EventKind) String() string {
	if k == MarkerRefined {
		return "refined"
	}
	return "created"
}

// Event is a registry change.
type Event struct {
	Kind   EventKind
	Marker *aruco.Marker
}

type broker struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan Event
	dropped atomic.Uint64
}

func newBroker() *broker {
	return &broker{subs: map[int]chan Event{}}
}

func (b *broker) subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Inc()
		}
	}
}

// Dropped returns how many events were not delivered because a subscriber was not keeping up.
func (r *Registry) Dropped() uint64 {
	return r.events.dropped.Load()
}
