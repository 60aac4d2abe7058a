package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shift_handover/internal/shift"
)

type faultRow struct {
	key   string
	fault shift.Fault
}

type plannedRow struct {
	key     string
	planned shift.PlannedWork
}

// Memory is the local-only record store. Ids and creation times come from
// the injected generators.
type Memory struct {
	mu      sync.RWMutex
	faults  map[string]faultRow
	planned map[string]plannedRow
	shifts  map[string]shift.Info
	last    int64

	now   func() time.Time
	newID func() string

	subs *fanout
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func WithIDs(newID func() string) MemoryOption {
	return func(m *Memory) { m.newID = newID }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		faults:  make(map[string]faultRow),
		planned: make(map[string]plannedRow),
		shifts:  make(map[string]shift.Info),
		now:     time.Now,
		newID:   uuid.NewString,
		subs:    newFanout(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Mode() string { return "local" }

// stamp returns a creation time strictly greater than any handed out before.
// Caller holds m.mu.
func (m *Memory) stamp() int64 {
	ts := m.now().UnixMilli()
	if ts <= m.last {
		ts = m.last + 1
	}
	m.last = ts
	return ts
}

func (m *Memory) AddFault(_ context.Context, shiftKey string, f shift.Fault) (shift.Fault, error) {
	m.mu.Lock()
	f.ID = m.newID()
	f.CreatedAt = m.stamp()
	m.faults[f.ID] = faultRow{key: shiftKey, fault: f}
	m.mu.Unlock()

	m.subs.notify(kindFaults, shiftKey)
	return f, nil
}

func (m *Memory) UpdateFault(_ context.Context, id string, u FaultUpdate) error {
	m.mu.Lock()
	row, ok := m.faults[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if u.empty() {
		m.mu.Unlock()
		return nil
	}
	u.apply(&row.fault)
	m.faults[id] = row
	m.mu.Unlock()

	m.subs.notify(kindFaults, row.key)
	return nil
}

func (m *Memory) DeleteFault(_ context.Context, id string) error {
	m.mu.Lock()
	row, ok := m.faults[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.faults, id)
	m.mu.Unlock()

	m.subs.notify(kindFaults, row.key)
	return nil
}

func (m *Memory) AddPlanned(_ context.Context, shiftKey, description string) (shift.PlannedWork, error) {
	m.mu.Lock()
	p := shift.PlannedWork{ID: m.newID(), Description: description, CreatedAt: m.stamp()}
	m.planned[p.ID] = plannedRow{key: shiftKey, planned: p}
	m.mu.Unlock()

	m.subs.notify(kindPlanned, shiftKey)
	return p, nil
}

func (m *Memory) DeletePlanned(_ context.Context, id string) error {
	m.mu.Lock()
	row, ok := m.planned[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.planned, id)
	m.mu.Unlock()

	m.subs.notify(kindPlanned, row.key)
	return nil
}

func (m *Memory) UpdateShift(_ context.Context, shiftKey string, u ShiftUpdate) error {
	m.mu.Lock()
	info, ok := m.shifts[shiftKey]
	if !ok {
		info = shift.Info{Date: u.Date, Type: u.Type}
	}
	u.apply(&info)
	m.shifts[shiftKey] = info
	m.mu.Unlock()

	m.subs.notify(kindShift, shiftKey)
	return nil
}

// Faults returns the shift's faults, newest first.
func (m *Memory) Faults(shiftKey string) []shift.Fault {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []shift.Fault
	for _, row := range m.faults {
		if row.key == shiftKey {
			out = append(out, row.fault)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

// Planned returns the shift's planned work in creation order.
func (m *Memory) Planned(shiftKey string) []shift.PlannedWork {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []shift.PlannedWork
	for _, row := range m.planned {
		if row.key == shiftKey {
			out = append(out, row.planned)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

func (m *Memory) Shift(shiftKey string) (shift.Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.shifts[shiftKey]
	return info, ok
}

func (m *Memory) WatchFaults(shiftKey string, fn FaultsFunc) (Unsubscribe, error) {
	return m.subs.add(kindFaults, shiftKey, func() { fn(m.Faults(shiftKey), nil) })
}

func (m *Memory) WatchPlanned(shiftKey string, fn PlannedFunc) (Unsubscribe, error) {
	return m.subs.add(kindPlanned, shiftKey, func() { fn(m.Planned(shiftKey), nil) })
}

func (m *Memory) WatchShift(shiftKey string, fn ShiftFunc) (Unsubscribe, error) {
	return m.subs.add(kindShift, shiftKey, func() {
		info, ok := m.Shift(shiftKey)
		fn(info, ok, nil)
	})
}

func (m *Memory) Close() error {
	m.subs.close()
	return nil
}
