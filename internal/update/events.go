package update

import (
	"fmt"
	"sync"
)

// EventKind identifies a host notification.
type EventKind int

const (
	// EventStateChanged fires on every state or message change.
	EventStateChanged EventKind = iota + 1
	// EventDownloadProgress fires on each download progress tick.
	EventDownloadProgress
	// EventRetry fires when a stalled download is restarted.
	EventRetry
	// EventCanceled fires when the download retry budget runs out.
	EventCanceled
	// EventInstallProgress fires after each file is moved into place.
	EventInstallProgress
	// EventInstallFailed fires after a failed install has been rolled back.
	EventInstallFailed
	// EventUpdateFinished fires once the update is installed; the host should restart.
	EventUpdateFinished
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state-changed"
	case EventDownloadProgress:
		return "download-progress"
	case EventRetry:
		return "retry"
	case EventCanceled:
		return "canceled"
	case EventInstallProgress:
		return "install-progress"
	case EventInstallFailed:
		return "install-failed"
	case EventUpdateFinished:
		return "update-finished"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered to listeners. Fields irrelevant to the kind are zero.
type Event struct {
	Kind       EventKind
	State      State
	ShortState ShortState
	Message    string
	Percent    int   // download-progress, install-progress
	BytesDone  int64 // download-progress
	BytesTotal int64 // download-progress, -1 when unknown
	Attempt    int   // retry
	MaxRetries int   // retry
	Err        error // install-failed and early terminal failures
}

// Listener receives events.
type Listener func(Event)

// Dispatcher decides on which goroutine listeners run.
type Dispatcher interface {
	Dispatch(fn func())
}

// InlineDispatcher runs listeners synchronously on the notifying goroutine.
type InlineDispatcher struct{}

// Dispatch runs fn immediately.
func (InlineDispatcher) Dispatch(fn func()) { fn() }

// QueueDispatcher runs listeners one at a time, in order, on a single
// dedicated goroutine. It stands in for a UI thread: hosts that must touch
// thread-affine state from listeners route everything through one of these.
type QueueDispatcher struct {
	mu      sync.Mutex
	items   []func()
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// NewQueueDispatcher starts the dispatch goroutine.
func NewQueueDispatcher() *QueueDispatcher {
	q := &QueueDispatcher{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Dispatch enqueues fn. It never blocks, so listeners may safely trigger
// further notifications. Calls after Close are dropped.
func (q *QueueDispatcher) Dispatch(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close runs everything already queued, then stops the goroutine.
func (q *QueueDispatcher) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.stopped
}

func (q *QueueDispatcher) run() {
	defer close(q.stopped)
	for range q.wake {
		for {
			q.mu.Lock()
			batch := q.items
			q.items = nil
			closed := q.closed
			q.mu.Unlock()

			for _, fn := range batch {
				fn()
			}

			if len(batch) == 0 {
				if closed {
					return
				}
				break
			}
		}
	}
}

type subscription struct {
	id   int
	kind EventKind // zero matches every kind
	fn   Listener
}

// eventBus keeps registered listeners in subscription order.
type eventBus struct {
	mu         sync.Mutex
	nextID     int
	subs       []subscription
	dispatcher Dispatcher
}

func newEventBus(d Dispatcher) *eventBus {
	if d == nil {
		d = InlineDispatcher{}
	}
	return &eventBus{dispatcher: d}
}

func (b *eventBus) subscribe(kind EventKind, fn Listener) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: kind, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *eventBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *eventBus) publish(ev Event) {
	b.mu.Lock()
	var targets []Listener
	for _, s := range b.subs {
		if s.kind == 0 || s.kind == ev.Kind {
			targets = append(targets, s.fn)
		}
	}
	b.mu.Unlock()

	if len(targets) == 0 {
		return
	}
	b.dispatcher.Dispatch(func() {
		for _, fn := range targets {
			fn(ev)
		}
	})
}

func (b *eventBus) clear() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}

func (b *eventBus) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
