package handler

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"codesight/internal/analysis"
)

const (
	defaultProgressTopics = 256
	subscriberBuffer      = 64
)

// ProgressHub fans pipeline events out to websocket subscribers. Topics are
// keyed by session ID and keep their history so late subscribers catch up.
type ProgressHub struct {
	mu     sync.Mutex
	topics *lru.Cache[string, *progressTopic]
}

type progressTopic struct {
	history []analysis.Event
	subs    map[chan analysis.Event]struct{}
	done    bool
}

func NewProgressHub(size int) *ProgressHub {
	if size <= 0 {
		size = defaultProgressTopics
	}
	cache, _ := lru.NewWithEvict[string, *progressTopic](size, func(_ string, t *progressTopic) {
		t.closeAll()
	})
	return &ProgressHub{topics: cache}
}

func (h *ProgressHub) topic(id string) *progressTopic {
	t, ok := h.topics.Get(id)
	if !ok {
		t = &progressTopic{subs: map[chan analysis.Event]struct{}{}}
		h.topics.Add(id, t)
	}
	return t
}

// Publish records ev and delivers it to current subscribers. Slow
// subscribers miss events rather than block the pipeline.
func (h *ProgressHub) Publish(id string, ev analysis.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topic(id)
	if t.done {
		return
	}
	t.history = append(t.history, ev)
	for ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Observer adapts Publish to the pipeline callback.
func (h *ProgressHub) Observer(id string) analysis.Observer {
	return func(ev analysis.Event) { h.Publish(id, ev) }
}

// Finish closes every subscriber of id. Later subscribers get the history
// and a closed channel.
func (h *ProgressHub) Finish(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topic(id)
	t.done = true
	t.closeAll()
}

// Subscribe returns a channel replaying the history of id followed by live
// events. The channel is closed when the run finishes or cancel is called.
func (h *ProgressHub) Subscribe(id string) (<-chan analysis.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topic(id)
	ch := make(chan analysis.Event, len(t.history)+subscriberBuffer)
	for _, ev := range t.history {
		ch <- ev
	}
	if t.done {
		close(ch)
		return ch, func() {}
	}
	t.subs[ch] = struct{}{}
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := t.subs[ch]; ok {
			delete(t.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (t *progressTopic) closeAll() {
	for ch := range t.subs {
		delete(t.subs, ch)
		close(ch)
	}
}
