package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shift_handover/internal/shift"
)

func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("HANDOVER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("set HANDOVER_TEST_DATABASE_URL to run Postgres integration tests")
	}
	ctx := context.Background()

	p, err := OpenPostgres(ctx, dsn, nil)
	require.NoError(t, err)
	defer p.Close()

	key := "itest-" + time.Now().UTC().Format("20060102150405.000000")

	var faults collector[shift.Fault]
	unsub, err := p.WatchFaults(key, faults.add)
	require.NoError(t, err)
	defer unsub()
	faults.eventually(t, func(s []shift.Fault) bool { return len(s) == 0 })

	first, err := p.AddFault(ctx, key, shift.NewFault{SiteNumber: "101", SiteName: "Downtown"}.Build())
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.NotZero(t, first.CreatedAt)

	second, err := p.AddFault(ctx, key, shift.NewFault{SiteNumber: "102", SiteName: "Harbor"}.Build())
	require.NoError(t, err)

	faults.eventually(t, func(s []shift.Fault) bool {
		return len(s) == 2 && s[0].ID == second.ID
	})

	closed := shift.StatusClosed
	require.NoError(t, p.UpdateFault(ctx, first.ID, FaultUpdate{Status: &closed}))
	faults.eventually(t, func(s []shift.Fault) bool {
		return len(s) == 2 && s[1].Status == shift.StatusClosed
	})

	require.NoError(t, p.DeleteFault(ctx, first.ID))
	require.NoError(t, p.DeleteFault(ctx, second.ID))
	faults.eventually(t, func(s []shift.Fault) bool { return len(s) == 0 })
	require.ErrorIs(t, p.DeleteFault(ctx, first.ID), ErrNotFound)

	w, err := p.AddPlanned(ctx, key, "battery test")
	require.NoError(t, err)
	require.NoError(t, p.DeletePlanned(ctx, w.ID))

	controllers := [2]string{"A", ""}
	notes := "quiet night"
	require.NoError(t, p.UpdateShift(ctx, key, ShiftUpdate{Date: "1.1.2026", Type: shift.Night, Controllers: &controllers}))
	require.NoError(t, p.UpdateShift(ctx, key, ShiftUpdate{Date: "1.1.2026", Type: shift.Night, Notes: &notes}))
	got, found, err := p.loadShift(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, shift.Info{Type: shift.Night, Date: "1.1.2026", Controllers: controllers, Notes: notes}, got)
}
