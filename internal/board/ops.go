package board

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shift_handover/internal/shift"
	"shift_handover/internal/store"
)

// Fault operations

// AddFault validates the form and stores a new open fault. Invalid forms are
// rejected with a *shift.ValidationError and nothing is written.
func (b *Board) AddFault(ctx context.Context, nf shift.NewFault) (shift.Fault, error) {
	if err := nf.Validate(); err != nil {
		return shift.Fault{}, err
	}
	key, err := b.currentKey()
	if err != nil {
		return shift.Fault{}, err
	}
	f, err := b.store.AddFault(ctx, key, nf.Build())
	if err != nil {
		return shift.Fault{}, b.storeError("add fault", err, zap.String("shift", key), zap.String("site", nf.SiteNumber))
	}
	b.log.Info("fault opened", zap.String("shift", key), zap.String("id", f.ID), zap.String("site", f.SiteNumber))
	return f, nil
}

// patch applies fn to the mirrored fault so the edit shows before the store
// echoes it back. It reports whether the fault is on the board.
func (b *Board) patch(id string, fn func(*shift.Fault)) bool {
	b.mu.Lock()
	found := false
	for i := range b.faults {
		if b.faults[i].ID == id {
			fn(&b.faults[i])
			found = true
			break
		}
	}
	b.mu.Unlock()
	if found {
		b.changed()
	}
	return found
}

func (b *Board) UpdateTreatment(ctx context.Context, id, treatment string) error {
	if _, err := b.currentKey(); err != nil {
		return err
	}
	b.patch(id, func(f *shift.Fault) { f.Treatment = treatment })
	if err := b.store.UpdateFault(ctx, id, store.FaultUpdate{Treatment: &treatment}); err != nil {
		return b.storeError("update treatment", err, zap.String("id", id))
	}
	return nil
}

func (b *Board) UpdateDowntime(ctx context.Context, id, downtime string) error {
	if _, err := b.currentKey(); err != nil {
		return err
	}
	b.patch(id, func(f *shift.Fault) { f.Downtime = downtime })
	if err := b.store.UpdateFault(ctx, id, store.FaultUpdate{Downtime: &downtime}); err != nil {
		return b.storeError("update downtime", err, zap.String("id", id))
	}
	return nil
}

// ToggleStatus flips the fault between open and closed based on the mirrored
// status. Concurrent toggles are not coordinated; the last write wins.
func (b *Board) ToggleStatus(ctx context.Context, id string) (shift.Status, error) {
	if _, err := b.currentKey(); err != nil {
		return "", err
	}
	var next shift.Status
	if !b.patch(id, func(f *shift.Fault) {
		next = f.Status.Toggle()
		f.Status = next
	}) {
		return "", fmt.Errorf("toggle fault %s: %w", id, store.ErrNotFound)
	}
	if err := b.store.UpdateFault(ctx, id, store.FaultUpdate{Status: &next}); err != nil {
		return "", b.storeError("toggle status", err, zap.String("id", id))
	}
	b.log.Info("fault status changed", zap.String("id", id), zap.String("status", string(next)))
	return next, nil
}

// DeleteFault removes a fault for good. The operator has to confirm first.
func (b *Board) DeleteFault(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if _, err := b.currentKey(); err != nil {
		return err
	}
	if err := b.store.DeleteFault(ctx, id); err != nil {
		return b.storeError("delete fault", err, zap.String("id", id))
	}
	b.log.Info("fault deleted", zap.String("id", id))
	return nil
}

// Planned work operations

// AddPlanned stores a planned work entry. A blank description is ignored: the
// zero PlannedWork and a nil error are returned.
func (b *Board) AddPlanned(ctx context.Context, description string) (shift.PlannedWork, error) {
	if shift.ValidatePlanned(description) != nil {
		return shift.PlannedWork{}, nil
	}
	key, err := b.currentKey()
	if err != nil {
		return shift.PlannedWork{}, err
	}
	w, err := b.store.AddPlanned(ctx, key, description)
	if err != nil {
		return shift.PlannedWork{}, b.storeError("add planned work", err, zap.String("shift", key))
	}
	return w, nil
}

// DeletePlanned removes a planned work entry immediately, without the
// confirmation that fault deletion asks for.
func (b *Board) DeletePlanned(ctx context.Context, id string) error {
	if _, err := b.currentKey(); err != nil {
		return err
	}
	if err := b.store.DeletePlanned(ctx, id); err != nil {
		return b.storeError("delete planned work", err, zap.String("id", id))
	}
	return nil
}

// Shift metadata

func (b *Board) SetControllers(ctx context.Context, controllers [2]string) error {
	return b.updateInfo(ctx, store.ShiftUpdate{Controllers: &controllers})
}

func (b *Board) SetNotes(ctx context.Context, notes string) error {
	return b.updateInfo(ctx, store.ShiftUpdate{Notes: &notes})
}

// updateInfo applies u to the mirrored metadata and writes only the fields
// set in u, leaving fields edited elsewhere alone.
func (b *Board) updateInfo(ctx context.Context, u store.ShiftUpdate) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.key == "" {
		b.mu.Unlock()
		return ErrNoShift
	}
	if u.Controllers != nil {
		b.info.Controllers = *u.Controllers
	}
	if u.Notes != nil {
		b.info.Notes = *u.Notes
	}
	u.Date, u.Type = b.info.Date, b.info.Type
	key := b.key
	b.mu.Unlock()
	b.changed()

	if err := b.store.UpdateShift(ctx, key, u); err != nil {
		return b.storeError("save shift", err, zap.String("shift", key))
	}
	return nil
}

// GenerateNotes asks the summarizer for a narrative of the shift and writes it
// over the notes. The request is tagged with the current selection; if the
// board has switched shift by the time the answer arrives, the answer is
// dropped and ErrStale returned. On failure the notes are left unchanged.
func (b *Board) GenerateNotes(ctx context.Context) (string, error) {
	if b.sum == nil {
		return "", ErrNoSummarizer
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", ErrClosed
	}
	if b.key == "" {
		b.mu.Unlock()
		return "", ErrNoShift
	}
	gen, key := b.gen, b.key
	faults := append([]shift.Fault{}, b.faults...)
	planned := append([]shift.PlannedWork{}, b.planned...)
	info := b.info
	b.mu.Unlock()

	if len(faults) == 0 && len(planned) == 0 {
		return "", ErrNothingToSummarize
	}

	text, err := b.sum.Summarize(ctx, faults, planned, info)
	if err != nil {
		b.log.Warn("AI summary failed", zap.String("shift", key), zap.Error(err))
		return "", err
	}

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		b.log.Info("discarding AI summary for previous shift", zap.String("shift", key))
		return "", ErrStale
	}
	b.info.Notes = text
	u := store.ShiftUpdate{Date: b.info.Date, Type: b.info.Type, Notes: &text}
	b.mu.Unlock()
	b.changed()

	if err := b.store.UpdateShift(ctx, key, u); err != nil {
		return text, b.storeError("save shift", err, zap.String("shift", key))
	}
	return text, nil
}
