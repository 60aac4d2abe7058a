package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shift_handover/internal/shift"
)

func TestSummarize_MissingKey(t *testing.T) {
	g, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.False(t, g.Enabled())
	assert.Equal(t, DefaultModel, g.Model())

	_, err = g.Summarize(context.Background(), nil, nil, shift.Info{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestPrompt(t *testing.T) {
	faults := []shift.Fault{
		{SiteNumber: "101", SiteName: "Downtown", Reason: "power outage", Downtime: "45m",
			IsPowerIssue: true, BatteryBackup: "30m", Status: shift.StatusOpen},
		{SiteNumber: "202", SiteName: "Harbor", Reason: "fiber cut", Downtime: "2h",
			BatteryBackup: "stale", Treatment: "spliced", Status: shift.StatusClosed},
	}
	planned := []shift.PlannedWork{{Description: "generator test"}}
	info := shift.Info{Controllers: [2]string{"Avi", "Noa"}, Type: shift.Evening, Date: "16.10.2026"}

	p := Prompt(faults, planned, info)

	assert.Contains(t, p, "בקרים: Avi ו-Noa\n")
	assert.Contains(t, p, "משמרת: ערב (15:00-23:00)\n")
	assert.Contains(t, p, "- אתר 101 (Downtown): סיבה: power outage, טיפול: בטיפול, סטטוס: פתוח, זמן השבתה: 45m, גיבוי מצברים: 30m\n")
	assert.Contains(t, p, "- אתר 202 (Harbor): סיבה: fiber cut, טיפול: spliced, סטטוס: סגור, זמן השבתה: 2h\n")
	assert.NotContains(t, p, "stale")
	assert.Contains(t, p, "- generator test\n")
	assert.Contains(t, p, "הערות נוספות: אין\n")

	assert.Equal(t, p, Prompt(faults, planned, info))
}

func TestPrompt_Notes(t *testing.T) {
	p := Prompt(nil, nil, shift.Info{Type: shift.Night, Notes: " rain \n"})
	assert.True(t, strings.Contains(p, "הערות נוספות: rain\n"))
}
