// Package shift holds the handover record schema and the rules that partition
// records by shift.
package shift

import (
	"fmt"
	"strings"
	"time"
)

type Type int

const (
	Morning Type = iota
	Evening
	Night
)

var types = [...]struct {
	name  string
	label string
	start int
	end   int
}{
	Morning: {"morning", "בוקר (07:00-15:00)", 7, 15},
	Evening: {"evening", "ערב (15:00-23:00)", 15, 23},
	Night:   {"night", "לילה (23:00-07:00)", 23, 7},
}

// Types lists every shift in clock order starting from the morning shift.
func Types() []Type {
	return []Type{Morning, Evening, Night}
}

func (t Type) valid() bool {
	return t >= Morning && t <= Night
}

// Label is the display label, including the hour range annotation.
func (t Type) Label() string {
	if !t.valid() {
		return ""
	}
	return types[t].label
}

// Token is the first whitespace-delimited word of the label.
func (t Type) Token() string {
	return leadingToken(t.Label())
}

func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return types[t].name
}

// Hours returns the inclusive start hour and exclusive end hour of the shift.
func (t Type) Hours() (start, end int) {
	if !t.valid() {
		return 0, 0
	}
	return types[t].start, types[t].end
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("invalid shift type %d", int(t))
	}
	return []byte(types[t].name), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType accepts the English name, the full label or its leading token.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	for _, t := range Types() {
		if strings.EqualFold(s, types[t].name) || s == types[t].label || s == t.Token() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown shift type %q", s)
}

// TypeAt resolves the shift covering the given wall-clock hour. Each shift
// owns its start hour, and the night shift wraps around midnight.
func TypeAt(hour int) Type {
	hour = ((hour % 24) + 24) % 24
	switch {
	case hour >= 7 && hour < 15:
		return Morning
	case hour >= 15 && hour < 23:
		return Evening
	default:
		return Night
	}
}

// DateLayout is the day.month.year display format used for shift dates.
const DateLayout = "2.1.2006"

// FormatDate renders t the way operators see the shift date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Key derives the partition key for a shift. The result is stable across
// processes, so a reloaded client rejoins the same shift.
func Key(date string, t Type) string {
	return KeyFor(date, t.Label())
}

// KeyFor derives the key from a raw shift label. Only the label's first word
// takes part in the key.
func KeyFor(date, label string) string {
	return dateSeparators.Replace(strings.TrimSpace(date)) + "_" + leadingToken(label)
}

var dateSeparators = strings.NewReplacer("/", "-", ".", "-", `\`, "-")

func leadingToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
