package store

import "sync"

type kind int

const (
	kindFaults kind = iota
	kindPlanned
	kindShift
)

// watcher runs one subscription. Pokes coalesce into a single pending
// delivery, and every delivery reads the current state, so a slow callback
// never sees an outdated snapshot after a newer one.
type watcher struct {
	kind    kind
	key     string
	deliver func()

	poke chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (w *watcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case <-w.poke:
		}
		select {
		case <-w.stop:
			return
		default:
		}
		w.deliver()
	}
}

func (w *watcher) wake() {
	select {
	case w.poke <- struct{}{}:
	default:
	}
}

func (w *watcher) halt() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

type fanout struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
	closed   bool
}

func newFanout() *fanout {
	return &fanout{watchers: make(map[*watcher]struct{})}
}

func (f *fanout) add(k kind, key string, deliver func()) (Unsubscribe, error) {
	w := &watcher{
		kind:    k,
		key:     key,
		deliver: deliver,
		poke:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	f.watchers[w] = struct{}{}
	f.mu.Unlock()

	w.wake()
	go w.run()

	return func() {
		f.mu.Lock()
		delete(f.watchers, w)
		f.mu.Unlock()
		w.halt()
	}, nil
}

// notify schedules a fresh snapshot for every watcher of kind k on key.
func (f *fanout) notify(k kind, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for w := range f.watchers {
		if w.kind == k && w.key == key {
			w.wake()
		}
	}
}

// notifyAll re-snapshots every subscription, e.g. after a reconnect.
func (f *fanout) notifyAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for w := range f.watchers {
		w.wake()
	}
}

func (f *fanout) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}

func (f *fanout) close() {
	f.mu.Lock()
	f.closed = true
	ws := make([]*watcher, 0, len(f.watchers))
	for w := range f.watchers {
		ws = append(ws, w)
	}
	f.watchers = make(map[*watcher]struct{})
	f.mu.Unlock()

	for _, w := range ws {
		w.halt()
	}
}
