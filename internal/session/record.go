package session

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxNumber is the largest subject, session, or measurement number.
const MaxNumber = 999

// MeasurementType is the category of a measurement.
type MeasurementType string

const (
	Anatomical MeasurementType = "anatomical"
	Functional MeasurementType = "functional"
	Misc       MeasurementType = "misc"
)

// MeasurementTypes lists the valid types in display order.
var MeasurementTypes = []MeasurementType{Anatomical, Functional, Misc}

var typeFolder = cases.Lower(language.Und)

// ParseMeasurementType folds the input to a known type.
func ParseMeasurementType(value string) (MeasurementType, error) {
	folded := MeasurementType(typeFolder.String(strings.TrimSpace(value)))
	for _, known := range MeasurementTypes {
		if folded == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown measurement type %q", value)
}

// DefaultChecklist is the checklist every session starts with.
var DefaultChecklist = []string{
	"MR Safety Screening Form",
	"Participation Informed Consent Form",
}

// Identifier is a numbered subject or session with an optional type tag.
type Identifier struct {
	Number int
	Type   string
}

// ChecklistItem records whether a form or document was collected.
type ChecklistItem struct {
	Label string
	Done  bool
}

// Measurement is one scan run within a session. Number is the correlation key
// between the record and the image files on disk.
type Measurement struct {
	Number   int
	Type     MeasurementType
	Vols     int
	Name     string
	Logfiles string
	Comments string
}

// SessionRecord is the documented metadata of one scan session.
type SessionRecord struct {
	Project       string
	Subject       Identifier
	Session       Identifier
	Date          string
	BookedTime    string
	ActualTime    string
	CertifiedUser string
	BackupPerson  string
	Notes         string
	Files         string
	Checklist     []ChecklistItem
	Measurements  []Measurement
}

// New returns an empty record with the default checklist.
func New() SessionRecord {
	checklist := make([]ChecklistItem, 0, len(DefaultChecklist))
	for _, label := range DefaultChecklist {
		checklist = append(checklist, ChecklistItem{Label: label})
	}
	return SessionRecord{Checklist: checklist}
}

// Clone returns a deep copy of the record.
func (r SessionRecord) Clone() SessionRecord {
	out := r
	if r.Checklist != nil {
		out.Checklist = append([]ChecklistItem(nil), r.Checklist...)
	}
	if r.Measurements != nil {
		out.Measurements = append([]Measurement(nil), r.Measurements...)
	}
	return out
}

// Validate reports every invariant violation of the record at once.
func (r SessionRecord) Validate() error {
	var errs []error
	if err := checkNumber("subject", r.Subject.Number); err != nil {
		errs = append(errs, err)
	}
	if err := checkNumber("session", r.Session.Number); err != nil {
		errs = append(errs, err)
	}
	seen := make(map[int]struct{}, len(r.Measurements))
	for i, m := range r.Measurements {
		if err := checkNumber(fmt.Sprintf("measurement %d", i+1), m.Number); err != nil {
			errs = append(errs, err)
		}
		if _, ok := seen[m.Number]; ok {
			errs = append(errs, fmt.Errorf("measurement number %d is used more than once", m.Number))
		}
		seen[m.Number] = struct{}{}
		if _, err := ParseMeasurementType(string(m.Type)); err != nil {
			errs = append(errs, fmt.Errorf("measurement %d: %w", m.Number, err))
		}
		if m.Vols < 0 {
			errs = append(errs, fmt.Errorf("measurement %d: negative volume count", m.Number))
		}
	}
	return errors.Join(errs...)
}

// AddChecklistItem appends a checklist label unless it is already present.
func (r *SessionRecord) AddChecklistItem(label string) {
	label = strings.TrimSpace(label)
	if label == "" {
		return
	}
	for _, item := range r.Checklist {
		if item.Label == label {
			return
		}
	}
	r.Checklist = append(r.Checklist, ChecklistItem{Label: label})
}

// Measurement returns the measurement with the given number.
func (r SessionRecord) Measurement(number int) (Measurement, bool) {
	for _, m := range r.Measurements {
		if m.Number == number {
			return m, true
		}
	}
	return Measurement{}, false
}

// LogfileNames collects every logfile line of every measurement.
func (r SessionRecord) LogfileNames() []string {
	var names []string
	for _, m := range r.Measurements {
		names = append(names, SplitPatterns(m.Logfiles)...)
	}
	return names
}

func checkNumber(what string, n int) error {
	if n < 1 || n > MaxNumber {
		return fmt.Errorf("%s number %d outside 1..%d", what, n, MaxNumber)
	}
	return nil
}

// SplitPatterns returns the trimmed, non-empty lines of a pattern list.
func SplitPatterns(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
