package engine

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
)

// Listener receives engine notifications. Calls happen on the instance's
// dispatch goroutine in wire arrival order; property changes go to
// OnPropertyChange only.
type Listener interface {
	OnEvent(Event)
	OnPropertyChange(name string, value json.RawMessage)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Event    func(Event)
	Property func(name string, value json.RawMessage)
}

func (f ListenerFuncs) OnEvent(ev Event) {
	if f.Event != nil {
		f.Event(ev)
	}
}

func (f ListenerFuncs) OnPropertyChange(name string, value json.RawMessage) {
	if f.Property != nil {
		f.Property(name, value)
	}
}

// Waiter is a one-shot subscription for the next event of a kind.
type Waiter struct {
	kind   Kind
	ch     chan Event
	cancel func()
}

// Wait blocks until the event arrives or ctx ends.
func (w *Waiter) Wait(ctx context.Context) (Event, error) {
	select {
	case ev := <-w.ch:
		return ev, nil
	case <-ctx.Done():
		w.Cancel()
		return nil, ctx.Err()
	}
}

// Cancel releases the waiter if it has not fired.
func (w *Waiter) Cancel() {
	w.cancel()
}

// dispatcher fans events out from an unbounded queue so a slow subscriber
// never stalls the reader.
type dispatcher struct {
	mu        sync.Mutex
	queue     []Event
	listeners map[int]Listener
	waiters   map[int]*Waiter
	nextID    int
	stopped   bool
	wake      chan struct{}
	done      chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		listeners: make(map[int]Listener),
		waiters:   make(map[int]*Waiter),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) subscribe(l Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.listeners[id] = l
	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

func (d *dispatcher) expect(kind Kind) *Waiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	w := &Waiter{kind: kind, ch: make(chan Event, 1)}
	w.cancel = func() {
		d.mu.Lock()
		delete(d.waiters, id)
		d.mu.Unlock()
	}
	d.waiters[id] = w
	return w
}

func (d *dispatcher) enqueue(ev Event) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, ev)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// stop ends the dispatch goroutine after the event in progress, if any.
func (d *dispatcher) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	d.queue = nil
	close(d.done)
}

func (d *dispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for {
			ev, listeners, ok := d.next()
			if !ok {
				break
			}
			for _, l := range listeners {
				deliver(l, ev)
			}
		}
	}
}

// next pops one event, firing matching waiters, and snapshots the listeners.
func (d *dispatcher) next() (Event, []Listener, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.queue) == 0 {
		return nil, nil, false
	}
	ev := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	for id, w := range d.waiters {
		if w.kind == ev.Kind() {
			w.ch <- ev
			delete(d.waiters, id)
		}
	}
	listeners := make([]Listener, 0, len(d.listeners))
	for _, id := range slices.Sorted(maps.Keys(d.listeners)) {
		listeners = append(listeners, d.listeners[id])
	}
	return ev, listeners, true
}

func deliver(l Listener, ev Event) {
	if change, ok := ev.(PropertyChange); ok {
		l.OnPropertyChange(change.Property, change.Value)
		return
	}
	l.OnEvent(ev)
}
