package shift

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Toggle flips open and closed. Anything else is treated as open.
func (s Status) Toggle() Status {
	if s == StatusOpen || s == "" {
		return StatusClosed
	}
	return StatusOpen
}

func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}

// Fault is one reported site outage.
type Fault struct {
	ID           string `json:"id"`
	SiteNumber   string `json:"siteNumber"`
	SiteName     string `json:"siteName"`
	Reason       string `json:"reason"`
	IsPowerIssue bool   `json:"isPowerIssue"`
	// BatteryBackup only means something when IsPowerIssue is set. It is
	// not cleared when the flag is unset.
	BatteryBackup string `json:"batteryBackupTime,omitempty"`
	Treatment     string `json:"treatment"`
	Downtime      string `json:"downtime"`
	Status        Status `json:"status"`
	CreatedAt     int64  `json:"createdAt"`
}

// ShowsBattery reports whether the battery backup belongs in rendered output.
func (f Fault) ShowsBattery() bool {
	return f.IsPowerIssue && strings.TrimSpace(f.BatteryBackup) != ""
}

type PlannedWork struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"-"`
}

// Info is the ambient metadata of a shift.
type Info struct {
	Controllers [2]string `json:"controllers"`
	Type        Type      `json:"shiftType"`
	Date        string    `json:"date"`
	Notes       string    `json:"generalNotes"`
}

// Current returns blank shift metadata for the shift containing now.
func Current(now time.Time) Info {
	return Info{
		Type: TypeAt(now.Hour()),
		Date: FormatDate(now),
	}
}

func (i Info) Key() string {
	return Key(i.Date, i.Type)
}

// ControllerNames returns the non-blank controller names in order.
func (i Info) ControllerNames() []string {
	var names []string
	for _, c := range i.Controllers {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	return names
}

// MissingSiteMessage is shown to the operator when a fault is submitted
// without a site number or site name.
const MissingSiteMessage = "נא להזין מספר אתר ושם אתר"

// ErrEmptyDescription rejects blank planned work.
var ErrEmptyDescription = errors.New("planned work description is empty")

// ValidationError is a blocking input error. Message is meant for the operator.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewFault is the operator's fault form.
type NewFault struct {
	SiteNumber    string `json:"siteNumber"`
	SiteName      string `json:"siteName"`
	Reason        string `json:"reason"`
	IsPowerIssue  bool   `json:"isPowerIssue"`
	BatteryBackup string `json:"batteryBackupTime"`
	Downtime      string `json:"downtime"`
}

func (n NewFault) Validate() error {
	switch {
	case strings.TrimSpace(n.SiteNumber) == "":
		return &ValidationError{Field: "siteNumber", Message: MissingSiteMessage}
	case strings.TrimSpace(n.SiteName) == "":
		return &ValidationError{Field: "siteName", Message: MissingSiteMessage}
	}
	return nil
}

// Build turns a validated form into a fresh open fault. ID and CreatedAt are
// left for the store to assign.
func (n NewFault) Build() Fault {
	return Fault{
		SiteNumber:    n.SiteNumber,
		SiteName:      n.SiteName,
		Reason:        n.Reason,
		IsPowerIssue:  n.IsPowerIssue,
		BatteryBackup: n.BatteryBackup,
		Downtime:      n.Downtime,
		Status:        StatusOpen,
	}
}

func ValidatePlanned(description string) error {
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	return nil
}
