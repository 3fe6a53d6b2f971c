package voice

import (
	"sync"
	"sync/atomic"
)

// Source is a live, possibly empty set of host voices.
type Source interface {
	// Voices returns the voices currently offered by the host.
	Voices() []Descriptor

	// Subscribe registers fn to be called whenever the voice set changes.
	// The returned function removes the subscription.
	Subscribe(fn func()) (unsubscribe func())
}

// Ranker keeps a ranked view of a Source. A change notification only marks
// the ranking stale; it is recomputed in full on the next read.
type Ranker struct {
	src   Source
	prefs Preferences

	stale atomic.Bool

	mu          sync.Mutex
	ranked      []Descriptor
	unsubscribe func()
	jitter      func() float64
}

// NewRanker subscribes to src. Close must be called to release the
// subscription.
func NewRanker(src Source, prefs Preferences) *Ranker {
	r := &Ranker{src: src, prefs: prefs}
	r.stale.Store(true)
	if src != nil {
		r.unsubscribe = src.Subscribe(r.Invalidate)
	}
	return r
}

// Invalidate marks the ranking stale.
func (r *Ranker) Invalidate() {
	r.stale.Store(true)
}

// Ranked returns the voices best first. The returned slice must not be
// modified.
func (r *Ranker) Ranked() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stale.Swap(false) {
		var voices []Descriptor
		if r.src != nil {
			voices = r.src.Voices()
		}
		if r.jitter != nil {
			r.ranked = rank(voices, r.prefs, r.jitter)
		} else {
			r.ranked = Rank(voices, r.prefs)
		}
	}
	return r.ranked
}

// Preferred returns the best voice, used for headings and narration.
func (r *Ranker) Preferred() (Descriptor, bool) {
	ranked := r.Ranked()
	if len(ranked) == 0 {
		return Descriptor{}, false
	}
	return ranked[0], true
}

// Secondary returns the second best voice, used for dialog.
func (r *Ranker) Secondary() (Descriptor, bool) {
	ranked := r.Ranked()
	if len(ranked) < 2 {
		return Descriptor{}, false
	}
	return ranked[1], true
}

// Close removes the change subscription. It is safe to call more than once.
func (r *Ranker) Close() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
