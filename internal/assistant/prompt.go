package assistant

import (
	"fmt"
	"strings"

	"shift_handover/internal/shift"
)

const promptHead = `פעל כבקר רשת מומחה במוקד NOC. ערוך סיכום משמרת מקצועי וטכני בעברית.

חוקים קשיחים לפלט:
1. אל תשתמש באייקונים או אמוג'ים בכלל (No emojis allowed).
2. לכל אתר ברשימה, חובה לציין: מספר אתר, שם אתר, סיבת ירידה, כיצד טופל, וזמן השבתה.
3. במידה ודווח זמן גיבוי מצברים (בבעיות חשמל), חובה לציין אותו בפירוט האתר.
4. שמור על מבנה נקי ומקצועי בלבד.
`

const promptTail = `
בנה סיכום הכולל:
- כותרת: סיכום משמרת [סוג] תאריך [תאריך]
- פירוט תקלות שנסגרו (כולל זמני השבתה וטיפול)
- פירוט תקלות פתוחות (כולל סיבות וזמני השבתה)
- עבודות יזומות שבוצעו
- הערות כלליות/חריגים
`

// Prompt builds the instruction sent to the model. It is deterministic in its
// inputs.
func Prompt(faults []shift.Fault, planned []shift.PlannedWork, info shift.Info) string {
	var b strings.Builder
	b.WriteString(promptHead)

	b.WriteString("\nנתוני המקור:\n")
	fmt.Fprintf(&b, "בקרים: %s\n", strings.Join(info.ControllerNames(), " ו-"))
	fmt.Fprintf(&b, "משמרת: %s\n", info.Type.Label())
	fmt.Fprintf(&b, "תאריך: %s\n", info.Date)

	b.WriteString("\nרשימת תקלות:\n")
	for _, f := range faults {
		b.WriteString(faultLine(f))
		b.WriteByte('\n')
	}

	b.WriteString("\nעבודות יזומות:\n")
	for _, p := range planned {
		fmt.Fprintf(&b, "- %s\n", p.Description)
	}

	notes := strings.TrimSpace(info.Notes)
	if notes == "" {
		notes = "אין"
	}
	fmt.Fprintf(&b, "\nהערות נוספות: %s\n", notes)

	b.WriteString(promptTail)
	return b.String()
}

func faultLine(f shift.Fault) string {
	treatment := f.Treatment
	if treatment == "" {
		treatment = "בטיפול"
	}
	status := "פתוח"
	if f.Status == shift.StatusClosed {
		status = "סגור"
	}
	line := fmt.Sprintf("- אתר %s (%s): סיבה: %s, טיפול: %s, סטטוס: %s, זמן השבתה: %s",
		f.SiteNumber, f.SiteName, f.Reason, treatment, status, f.Downtime)
	if f.ShowsBattery() {
		line += ", גיבוי מצברים: " + f.BatteryBackup
	}
	return line
}
