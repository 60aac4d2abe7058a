// Package summary renders the shareable shift handover report.
package summary

import (
	"fmt"
	"net/url"
	"strings"

	"shift_handover/internal/shift"
)

type Mode int

const (
	Plain Mode = iota
	// WhatsApp wraps headers in the messaging app's bold markers.
	WhatsApp
)

// ParseMode maps a query value to a Mode. Unknown values render plain text.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "whatsapp", "wa", "message":
		return WhatsApp
	default:
		return Plain
	}
}

const (
	titleFmt         = "📋 סיכום משמרת בקרה - %s"
	dateFmt          = "📅 תאריך: %s"
	controllersFmt   = "👤 בקרים: %s"
	controllersJoin  = " ו-"
	closedHeader     = "✅ תקלות שנסגרו במהלך המשמרת:"
	openHeader       = "⚠️ תקלות שנותרו פתוחות:"
	plannedHeader    = "🛠️ עבודות יזומות:"
	notesHeader      = "📝 אירועים מיוחדים:"
	noClosed         = "אין תקלות שנסגרו"
	noOpen           = "אין תקלות פתוחות"
	noPlanned        = "אין עבודות יזומות"
	noNotes          = "אין אירועים מיוחדים"
	defaultTreatment = "טופל"
)

// Compose builds the handover report. Faults keep their input order within
// the closed and open sections; every section is emitted even when empty.
func Compose(faults []shift.Fault, planned []shift.PlannedWork, info shift.Info, mode Mode) string {
	var b strings.Builder
	header := func(s string) {
		if mode == WhatsApp {
			s = "*" + s + "*"
		}
		b.WriteString(s)
		b.WriteByte('\n')
	}
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	header(fmt.Sprintf(titleFmt, info.Type.Label()))
	line(dateFmt, info.Date)
	line(controllersFmt, strings.Join(info.ControllerNames(), controllersJoin))
	b.WriteByte('\n')

	var closed, open []shift.Fault
	for _, f := range faults {
		if f.Status == shift.StatusClosed {
			closed = append(closed, f)
		} else {
			open = append(open, f)
		}
	}

	header(closedHeader)
	if len(closed) == 0 {
		line(noClosed)
	}
	for i, f := range closed {
		line("%s", closedLine(i+1, f))
	}
	b.WriteByte('\n')

	header(openHeader)
	if len(open) == 0 {
		line(noOpen)
	}
	for i, f := range open {
		line("%s", openLine(i+1, f))
	}
	b.WriteByte('\n')

	header(plannedHeader)
	if len(planned) == 0 {
		line(noPlanned)
	}
	for i, p := range planned {
		line("%d. %s", i+1, oneLine(p.Description))
	}
	b.WriteByte('\n')

	header(notesHeader)
	if notes := strings.TrimSpace(info.Notes); notes != "" {
		b.WriteString(notes)
	} else {
		b.WriteString(noNotes)
	}
	return b.String()
}

func closedLine(n int, f shift.Fault) string {
	treatment := oneLine(f.Treatment)
	if treatment == "" {
		treatment = defaultTreatment
	}
	return fmt.Sprintf("%d. אתר %s (%s) | השבתה: %s | טיפול: %s",
		n, oneLine(f.SiteNumber), oneLine(f.SiteName), oneLine(f.Downtime), treatment)
}

func openLine(n int, f shift.Fault) string {
	s := fmt.Sprintf("%d. אתר %s (%s) | סיבה: %s | השבתה: %s",
		n, oneLine(f.SiteNumber), oneLine(f.SiteName), oneLine(f.Reason), oneLine(f.Downtime))
	if f.ShowsBattery() {
		s += " | גיבוי: " + oneLine(f.BatteryBackup)
	}
	return s
}

// oneLine collapses runs of whitespace, line breaks included, so each entry
// stays on a single line of the report.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const whatsAppBase = "https://wa.me/?text="

// WhatsAppLink returns a deep link that opens the messaging app with text
// prefilled. Spaces are escaped as %20 rather than '+'.
func WhatsAppLink(text string) string {
	return whatsAppBase + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
