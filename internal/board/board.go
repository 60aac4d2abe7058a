// Package board keeps an operator's view of one shift in step with the record
// store and exposes the handover operations on it.
//
// A Board mirrors the faults, planned work and metadata of the selected shift.
// Mirrors are replaced wholesale by store snapshots; writes go to the store and
// come back through the subscriptions. Switching shift tears the previous
// subscriptions down before new ones start, and snapshots or generated
// summaries that belong to an earlier selection are dropped.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"shift_handover/internal/shift"
	"shift_handover/internal/store"
	"shift_handover/internal/summary"
)

var (
	ErrConfirmationRequired = errors.New("fault deletion requires confirmation")
	ErrNoShift              = errors.New("no shift selected")
	ErrClosed               = errors.New("board closed")
	ErrNothingToSummarize   = errors.New("no faults or planned works to summarize")
	ErrNoSummarizer         = errors.New("generative summary is not available")
	// ErrStale reports a generated summary that arrived after the board moved
	// to another shift. The result is discarded.
	ErrStale = errors.New("shift changed while the summary was generated")
)

// DeleteFaultPrompt is the question an operator must confirm before a fault is
// deleted.
const DeleteFaultPrompt = "האם למחוק את התקלה מהרשימה?"

type Summarizer interface {
	Summarize(ctx context.Context, faults []shift.Fault, planned []shift.PlannedWork, info shift.Info) (string, error)
}

type Option func(*Board)

func WithLogger(log *zap.Logger) Option {
	return func(b *Board) { b.log = log }
}

func WithSummarizer(s Summarizer) Option {
	return func(b *Board) { b.sum = s }
}

// WithOnChange registers fn to run after every change to the board's state.
// fn runs on store goroutines and must not call Switch or Close.
func WithOnChange(fn func()) Option {
	return func(b *Board) { b.onChange = fn }
}

const (
	loadedFaults = 1 << iota
	loadedPlanned
	loadedShift

	loadedAll = loadedFaults | loadedPlanned | loadedShift
)

type Board struct {
	store    store.Store
	sum      Summarizer
	log      *zap.Logger
	onChange func()

	switchMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	key     string
	info    shift.Info
	faults  []shift.Fault
	planned []shift.PlannedWork
	conn    ConnState
	loaded  int
	load    *firstLoad
	unsubs  []store.Unsubscribe
	closed  bool
}

func New(st store.Store, opts ...Option) *Board {
	b := &Board{
		store: st,
		log:   zap.NewNop(),
		conn:  Disconnected,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Switch selects the shift described by info. Subscriptions of the previous
// shift are torn down before the new ones are established.
func (b *Board) Switch(info shift.Info) error {
	b.switchMu.Lock()
	defer b.switchMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.gen++
	gen := b.gen
	old := b.unsubs
	b.unsubs = nil
	b.key = info.Key()
	b.info = info
	b.faults, b.planned = nil, nil
	b.conn = Connecting
	b.loaded = 0
	b.load = &firstLoad{done: make(chan struct{})}
	key := b.key
	b.mu.Unlock()

	for _, unsub := range old {
		unsub()
	}
	b.changed()

	unsubs, err := b.subscribe(gen, key)
	b.mu.Lock()
	if err != nil {
		if b.gen == gen {
			b.conn = Disconnected
			b.load.finish(err)
		}
		b.mu.Unlock()
		b.log.Error("subscribe to shift", zap.String("shift", key), zap.Error(err))
		b.changed()
		return err
	}
	b.unsubs = unsubs
	b.mu.Unlock()

	b.log.Debug("switched shift", zap.String("shift", key))
	return nil
}

func (b *Board) subscribe(gen uint64, key string) ([]store.Unsubscribe, error) {
	var unsubs []store.Unsubscribe
	fail := func(what string, err error) ([]store.Unsubscribe, error) {
		for _, unsub := range unsubs {
			unsub()
		}
		return nil, fmt.Errorf("watch %s: %w", what, err)
	}

	unsub, err := b.store.WatchFaults(key, func(faults []shift.Fault, err error) {
		b.applyFaults(gen, faults, err)
	})
	if err != nil {
		return fail("faults", err)
	}
	unsubs = append(unsubs, unsub)

	unsub, err = b.store.WatchPlanned(key, func(planned []shift.PlannedWork, err error) {
		b.applyPlanned(gen, planned, err)
	})
	if err != nil {
		return fail("planned works", err)
	}
	unsubs = append(unsubs, unsub)

	unsub, err = b.store.WatchShift(key, func(info shift.Info, found bool, err error) {
		b.applyShift(gen, info, found, err)
	})
	if err != nil {
		return fail("shift", err)
	}
	return append(unsubs, unsub), nil
}

// firstLoad is the outcome of the first snapshots after a switch. err is
// set when a stream failed before every stream had loaded.
type firstLoad struct {
	done   chan struct{}
	closed bool
	err    error
}

// finish settles the first load. Caller holds b.mu.
func (l *firstLoad) finish(err error) {
	if l.closed {
		return
	}
	l.closed = true
	l.err = err
	close(l.done)
}

// markLoaded records the first snapshot of a stream. Caller holds b.mu.
func (b *Board) markLoaded(bit int) {
	if b.loaded == loadedAll {
		return
	}
	b.loaded |= bit
	if b.loaded == loadedAll {
		b.load.finish(nil)
	}
}

// snapshotFailed handles a failed snapshot read. Caller holds b.mu and
// releases it here.
func (b *Board) snapshotFailed(what string, err error) {
	b.conn = Disconnected
	if b.loaded != loadedAll {
		b.load.finish(fmt.Errorf("load %s: %w", what, err))
	}
	key := b.key
	b.mu.Unlock()
	b.log.Error("record store snapshot failed", zap.String("stream", what), zap.String("shift", key), zap.Error(err))
	b.changed()
}

func (b *Board) applyFaults(gen uint64, faults []shift.Fault, err error) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	if err != nil {
		b.snapshotFailed("faults", err)
		return
	}
	b.faults = faults
	b.conn = Connected
	b.markLoaded(loadedFaults)
	b.mu.Unlock()
	b.changed()
}

func (b *Board) applyPlanned(gen uint64, planned []shift.PlannedWork, err error) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	if err != nil {
		b.snapshotFailed("planned", err)
		return
	}
	b.planned = planned
	b.markLoaded(loadedPlanned)
	b.mu.Unlock()
	b.changed()
}

func (b *Board) applyShift(gen uint64, info shift.Info, found bool, err error) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	if err != nil {
		b.snapshotFailed("shift", err)
		return
	}
	if found {
		b.info = info
	}
	b.markLoaded(loadedShift)
	b.mu.Unlock()
	b.changed()
}

func (b *Board) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

// WaitReady blocks until the first snapshot of every stream of the current
// shift has arrived. It returns early with the error of a stream that failed
// before that.
func (b *Board) WaitReady(ctx context.Context) error {
	b.mu.Lock()
	load := b.load
	b.mu.Unlock()
	if load == nil {
		return ErrNoShift
	}
	select {
	case <-load.done:
		b.mu.Lock()
		defer b.mu.Unlock()
		return load.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drops the subscriptions. The board cannot be switched again.
func (b *Board) Close() {
	b.switchMu.Lock()
	defer b.switchMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.gen++
	old := b.unsubs
	b.unsubs = nil
	b.conn = Disconnected
	if b.load != nil {
		b.load.finish(ErrClosed)
	}
	b.mu.Unlock()

	for _, unsub := range old {
		unsub()
	}
	b.changed()
}

// State is a copy of the board for rendering.
type State struct {
	Key        string              `json:"shiftKey"`
	Info       shift.Info          `json:"shift"`
	Faults     []shift.Fault       `json:"faults"`
	Planned    []shift.PlannedWork `json:"planned"`
	Connection ConnState           `json:"connection"`
}

func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Key:        b.key,
		Info:       b.info,
		Faults:     append([]shift.Fault{}, b.faults...),
		Planned:    append([]shift.PlannedWork{}, b.planned...),
		Connection: b.conn,
	}
}

func (b *Board) Connection() ConnState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

func (b *Board) Key() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key
}

// Summary composes the shareable report from the current mirrors.
func (b *Board) Summary(mode summary.Mode) string {
	s := b.State()
	return summary.Compose(s.Faults, s.Planned, s.Info, mode)
}

func (b *Board) currentKey() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", ErrClosed
	}
	if b.key == "" {
		return "", ErrNoShift
	}
	return b.key, nil
}

func (b *Board) storeError(op string, err error, fields ...zap.Field) error {
	b.log.Error(op, append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", op, err)
}
