package voice

import "sync"

// List is an in-memory Source. Set replaces the voices and notifies every
// subscriber.
type List struct {
	mu     sync.Mutex
	voices []Descriptor
	subs   map[int]func()
	nextID int
}

// NewList creates a List holding voices.
func NewList(voices ...Descriptor) *List {
	return &List{voices: voices, subs: make(map[int]func())}
}

// Voices returns a copy of the current voices.
func (l *List) Voices() []Descriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Descriptor(nil), l.voices...)
}

// Set replaces the voice set and notifies subscribers.
func (l *List) Set(voices []Descriptor) {
	l.mu.Lock()
	l.voices = append([]Descriptor(nil), voices...)
	subs := make([]func(), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Subscribe implements Source.
func (l *List) Subscribe(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subs == nil {
		l.subs = make(map[int]func())
	}
	id := l.nextID
	l.nextID++
	l.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (l *List) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}
