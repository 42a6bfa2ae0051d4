package reactor

import "sync"

// property holds a workflow's current state and its subscribers.
//
// publish and subscribe are serialized by mu, so a subscriber receives every
// state published after the snapshot subscribe returned, and nothing before it.
type property[S, V any] struct {
	mu     sync.Mutex
	value  WorkflowState[S, V]
	subs   []subscriber[S, V]
	nextID uint64
}

type subscriber[S, V any] struct {
	id uint64
	fn func(WorkflowState[S, V])
}

func newProperty[S, V any](initial WorkflowState[S, V]) *property[S, V] {
	return &property[S, V]{value: initial}
}

func (p *property[S, V]) get() WorkflowState[S, V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// subscribe registers fn and returns the state it was registered against.
func (p *property[S, V]) subscribe(fn func(WorkflowState[S, V])) (WorkflowState[S, V], func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.value.IsFinished() {
		return p.value, func() {}
	}

	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscriber[S, V]{id: id, fn: fn})

	var once sync.Once
	cancel := func() {
		once.Do(func() { p.unsubscribe(id) })
	}
	return p.value, cancel
}

func (p *property[S, V]) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, s := range p.subs {
		if s.id == id {
			p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
			return
		}
	}
}

// publish stores ws and notifies subscribers in subscription order.
// Subscribers run outside the lock and may cancel themselves.
func (p *property[S, V]) publish(ws WorkflowState[S, V]) {
	p.mu.Lock()
	p.value = ws
	subs := make([]func(WorkflowState[S, V]), len(p.subs))
	for i, s := range p.subs {
		subs[i] = s.fn
	}
	if ws.IsFinished() {
		// Terminal: nothing follows, so drop the references.
		p.subs = nil
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(ws)
	}
}
