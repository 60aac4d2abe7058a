package summary

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shift_handover/internal/shift"
)

var downtown = shift.Fault{
	ID:            "f1",
	SiteNumber:    "101",
	SiteName:      "Downtown",
	Reason:        "power outage",
	Downtime:      "45m",
	IsPowerIssue:  true,
	BatteryBackup: "30m",
	Status:        shift.StatusOpen,
}

var info = shift.Info{
	Controllers: [2]string{"Avi", "Noa"},
	Type:        shift.Morning,
	Date:        "16.10.2026",
}

// section returns the body lines that follow header up to the next blank line.
func section(t *testing.T, text, header string) []string {
	t.Helper()
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if strings.Trim(l, "*") != header {
			continue
		}
		var body []string
		for _, b := range lines[i+1:] {
			if b == "" {
				break
			}
			body = append(body, b)
		}
		return body
	}
	t.Fatalf("header %q not found in:\n%s", header, text)
	return nil
}

func TestCompose_Empty(t *testing.T) {
	want := strings.Join([]string{
		"📋 סיכום משמרת בקרה - בוקר (07:00-15:00)",
		"📅 תאריך: 16.10.2026",
		"👤 בקרים: Avi ו-Noa",
		"",
		"✅ תקלות שנסגרו במהלך המשמרת:",
		"אין תקלות שנסגרו",
		"",
		"⚠️ תקלות שנותרו פתוחות:",
		"אין תקלות פתוחות",
		"",
		"🛠️ עבודות יזומות:",
		"אין עבודות יזומות",
		"",
		"📝 אירועים מיוחדים:",
		"אין אירועים מיוחדים",
	}, "\n")

	got := Compose(nil, nil, info, Plain)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compose mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_OpenFaultWithBattery(t *testing.T) {
	got := Compose([]shift.Fault{downtown}, nil, info, Plain)
	assert.Equal(t,
		[]string{"1. אתר 101 (Downtown) | סיבה: power outage | השבתה: 45m | גיבוי: 30m"},
		section(t, got, openHeader))
	assert.Equal(t, []string{noClosed}, section(t, got, closedHeader))
}

func TestCompose_ClosedFault(t *testing.T) {
	f := downtown
	f.Status = shift.StatusClosed
	f.Treatment = "replaced fuse"

	got := Compose([]shift.Fault{f}, nil, info, Plain)
	assert.Equal(t,
		[]string{"1. אתר 101 (Downtown) | השבתה: 45m | טיפול: replaced fuse"},
		section(t, got, closedHeader))
	assert.Equal(t, []string{noOpen}, section(t, got, openHeader))
}

func TestCompose_DefaultTreatment(t *testing.T) {
	f := downtown
	f.Status = shift.StatusClosed
	got := Compose([]shift.Fault{f}, nil, info, Plain)
	assert.Equal(t, []string{"1. אתר 101 (Downtown) | השבתה: 45m | טיפול: טופל"}, section(t, got, closedHeader))
}

func TestCompose_BatteryHiddenWithoutPowerIssue(t *testing.T) {
	f := downtown
	f.IsPowerIssue = false
	got := Compose([]shift.Fault{f}, nil, info, Plain)
	assert.NotContains(t, got, "גיבוי")
	assert.NotContains(t, got, "30m")
}

func TestCompose_PartitionPreservesOrder(t *testing.T) {
	var faults []shift.Fault
	for i, st := range []shift.Status{"open", "closed", "open", "closed", "closed", "open", "open"} {
		faults = append(faults, shift.Fault{SiteNumber: string(rune('A' + i)), SiteName: "s", Status: st})
	}
	got := Compose(faults, nil, info, Plain)

	closed := section(t, got, closedHeader)
	open := section(t, got, openHeader)
	require.Len(t, closed, 3)
	require.Len(t, open, 4)
	assert.True(t, strings.HasPrefix(closed[0], "1. אתר B "))
	assert.True(t, strings.HasPrefix(closed[2], "3. אתר E "))
	assert.True(t, strings.HasPrefix(open[0], "1. אתר A "))
	assert.True(t, strings.HasPrefix(open[3], "4. אתר G "))
}

func TestCompose_PlannedAndNotes(t *testing.T) {
	withNotes := info
	withNotes.Notes = "  generator test at 10:00 \n"
	got := Compose(nil, []shift.PlannedWork{{Description: "swap rectifier"}, {Description: "fiber splice"}}, withNotes, Plain)

	assert.Equal(t, []string{"1. swap rectifier", "2. fiber splice"}, section(t, got, plannedHeader))
	assert.True(t, strings.HasSuffix(got, notesHeader+"\ngenerator test at 10:00"))
}

func TestCompose_MultiLineFieldsStayOnOneLine(t *testing.T) {
	closed := downtown
	closed.ID = "f2"
	closed.Status = shift.StatusClosed
	closed.Treatment = "replaced rectifier\n\nchecked alarms"
	open := downtown
	open.Reason = "power outage\r\nfeeder B"
	planned := []shift.PlannedWork{{ID: "p1", Description: "antenna swap\nsector 2"}}

	text := Compose([]shift.Fault{closed, open}, planned, info, Plain)

	assert.Equal(t, []string{
		"1. אתר 101 (Downtown) | השבתה: 45m | טיפול: replaced rectifier checked alarms",
	}, section(t, text, closedHeader))
	assert.Equal(t, []string{
		"1. אתר 101 (Downtown) | סיבה: power outage feeder B | השבתה: 45m | גיבוי: 30m",
	}, section(t, text, openHeader))
	assert.Equal(t, []string{"1. antenna swap sector 2"}, section(t, text, plannedHeader))

	closed.Treatment = "\n \n"
	text = Compose([]shift.Fault{closed}, nil, info, Plain)
	assert.Equal(t, []string{
		"1. אתר 101 (Downtown) | השבתה: 45m | טיפול: טופל",
	}, section(t, text, closedHeader))
}

func TestCompose_SingleController(t *testing.T) {
	solo := info
	solo.Controllers = [2]string{"", "Noa"}
	got := Compose(nil, nil, solo, Plain)
	assert.Contains(t, got, "👤 בקרים: Noa\n")
}

func TestCompose_WhatsAppEmphasis(t *testing.T) {
	got := Compose([]shift.Fault{downtown}, []shift.PlannedWork{{Description: "x"}}, info, WhatsApp)
	for _, h := range []string{closedHeader, openHeader, plannedHeader, notesHeader} {
		assert.Contains(t, got, "*"+h+"*\n")
	}
	assert.Contains(t, got, "*📋 סיכום משמרת בקרה - בוקר (07:00-15:00)*\n")
	for _, l := range strings.Split(got, "\n") {
		if strings.HasPrefix(l, "1. ") {
			assert.NotContains(t, l, "*")
		}
	}

	plain := Compose([]shift.Fault{downtown}, []shift.PlannedWork{{Description: "x"}}, info, Plain)
	assert.NotContains(t, plain, "*")
}

func TestCompose_Deterministic(t *testing.T) {
	faults := []shift.Fault{downtown, {SiteNumber: "2", SiteName: "b", Status: shift.StatusClosed}}
	planned := []shift.PlannedWork{{Description: "x"}}
	first := Compose(faults, planned, info, WhatsApp)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Compose(faults, planned, info, WhatsApp))
	}
	assert.Equal(t, shift.StatusOpen, faults[0].Status)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, WhatsApp, ParseMode("WhatsApp"))
	assert.Equal(t, Plain, ParseMode("plain"))
	assert.Equal(t, Plain, ParseMode(""))
}

func TestWhatsAppLink(t *testing.T) {
	text := "*a b*\n1. x&y+z"
	link := WhatsAppLink(text)
	require.True(t, strings.HasPrefix(link, "https://wa.me/?text="))
	assert.NotContains(t, link, " ")
	assert.Contains(t, link, "a%20b")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, text, u.Query().Get("text"))
}
