// Package store is the record store behind the handover board: faults,
// planned work and shift metadata, partitioned by shift key, with live
// snapshot subscriptions.
package store

import (
	"context"
	"errors"

	"shift_handover/internal/shift"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrClosed   = errors.New("store closed")
)

// FaultUpdate is a partial fault update. Nil fields are left untouched.
type FaultUpdate struct {
	Treatment *string       `json:"treatment,omitempty"`
	Downtime  *string       `json:"downtime,omitempty"`
	Status    *shift.Status `json:"status,omitempty"`
}

func (u FaultUpdate) empty() bool {
	return u.Treatment == nil && u.Downtime == nil && u.Status == nil
}

func (u FaultUpdate) apply(f *shift.Fault) {
	if u.Treatment != nil {
		f.Treatment = *u.Treatment
	}
	if u.Downtime != nil {
		f.Downtime = *u.Downtime
	}
	if u.Status != nil {
		f.Status = *u.Status
	}
}

// ShiftUpdate is a partial update of shift metadata. Date and Type identify
// the shift when its record does not exist yet; nil fields are left untouched.
type ShiftUpdate struct {
	Date        string
	Type        shift.Type
	Controllers *[2]string
	Notes       *string
}

func (u ShiftUpdate) apply(info *shift.Info) {
	if u.Controllers != nil {
		info.Controllers = *u.Controllers
	}
	if u.Notes != nil {
		info.Notes = *u.Notes
	}
}

// Unsubscribe stops a subscription. It is safe to call more than once and
// returns after the last callback has finished. It must not be called from
// inside that subscription's own callback.
type Unsubscribe func()

// Snapshot callbacks always receive the complete current result set for the
// shift key. A non-nil error means the snapshot could not be read.
type (
	FaultsFunc  func(faults []shift.Fault, err error)
	PlannedFunc func(planned []shift.PlannedWork, err error)
	ShiftFunc   func(info shift.Info, found bool, err error)
)

// Store is implemented by Memory (local-only) and Postgres (shared).
//
// Watch methods deliver an initial snapshot and then a fresh one after every
// change to the shift key, each on the subscription's own goroutine. Faults are
// ordered newest first; planned work in creation order.
type Store interface {
	AddFault(ctx context.Context, shiftKey string, f shift.Fault) (shift.Fault, error)
	UpdateFault(ctx context.Context, id string, u FaultUpdate) error
	DeleteFault(ctx context.Context, id string) error

	AddPlanned(ctx context.Context, shiftKey, description string) (shift.PlannedWork, error)
	DeletePlanned(ctx context.Context, id string) error

	UpdateShift(ctx context.Context, shiftKey string, u ShiftUpdate) error

	WatchFaults(shiftKey string, fn FaultsFunc) (Unsubscribe, error)
	WatchPlanned(shiftKey string, fn PlannedFunc) (Unsubscribe, error)
	WatchShift(shiftKey string, fn ShiftFunc) (Unsubscribe, error)

	// Mode names the variant for diagnostics: "local" or "postgres".
	Mode() string
	Close() error
}
