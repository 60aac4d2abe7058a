package board

import (
	"context"
	"sync"

	"shift_handover/internal/shift"
	"shift_handover/internal/store"
)

// Hub shares one board per shift key between short-lived callers such as
// HTTP handlers. A board lives while at least one caller holds it.
type Hub struct {
	store store.Store
	opts  []Option

	mu     sync.Mutex
	boards map[string]*hubEntry
}

type hubEntry struct {
	board *Board
	refs  int
}

func NewHub(st store.Store, opts ...Option) *Hub {
	return &Hub{
		store:  st,
		opts:   opts,
		boards: make(map[string]*hubEntry),
	}
}

// Acquire returns the board for info's shift once its first snapshots have
// arrived. release must be called when the caller is done with it.
func (h *Hub) Acquire(ctx context.Context, info shift.Info) (*Board, func(), error) {
	key := info.Key()

	h.mu.Lock()
	e, ok := h.boards[key]
	if !ok {
		b := New(h.store, h.opts...)
		if err := b.Switch(info); err != nil {
			h.mu.Unlock()
			b.Close()
			return nil, nil, err
		}
		e = &hubEntry{board: b}
		h.boards[key] = e
	}
	e.refs++
	h.mu.Unlock()

	release := sync.OnceFunc(func() { h.release(key, e) })
	if err := e.board.WaitReady(ctx); err != nil {
		release()
		return nil, nil, err
	}
	return e.board, release, nil
}

func (h *Hub) release(key string, e *hubEntry) {
	h.mu.Lock()
	e.refs--
	if e.refs > 0 || h.boards[key] != e {
		h.mu.Unlock()
		return
	}
	delete(h.boards, key)
	h.mu.Unlock()
	e.board.Close()
}

// Len reports how many shifts currently have a live board.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.boards)
}

func (h *Hub) Close() {
	h.mu.Lock()
	entries := h.boards
	h.boards = make(map[string]*hubEntry)
	h.mu.Unlock()
	for _, e := range entries {
		e.board.Close()
	}
}
