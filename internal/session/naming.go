package session

import (
	"fmt"
	"strings"
)

// Label renders the identifier as <prefix>-NNN[-Type].
func (id Identifier) Label(prefix string) string {
	label := fmt.Sprintf("%s-%03d", prefix, id.Number)
	if t := strings.TrimSpace(id.Type); t != "" {
		label += "-" + t
	}
	return label
}

// SubjectLabel returns the sub-NNN[-Type] folder name.
func (r SessionRecord) SubjectLabel() string { return r.Subject.Label("sub") }

// SessionLabel returns the ses-NNN[-Type] folder name.
func (r SessionRecord) SessionLabel() string { return r.Session.Label("ses") }

// ProtocolFilename derives the protocol file name without extension:
// ScanProtocol_<project>_<subject>_<session>_<YYYYMMDD>. Missing project and
// date fall back to the placeholders "Project" and "Date".
func (r SessionRecord) ProtocolFilename() string {
	project := strings.TrimSpace(r.Project)
	if project == "" {
		project = "Project"
	}
	date := strings.TrimSpace(r.Date)
	if date == "" {
		date = "Date"
	} else {
		date = strings.ReplaceAll(date, "-", "")
	}
	return fmt.Sprintf("ScanProtocol_%s_%s_%s_%s", project, r.SubjectLabel(), r.SessionLabel(), date)
}

// Folder returns the NNN-Name folder name of a measurement.
func (m Measurement) Folder() string {
	return fmt.Sprintf("%03d-%s", m.Number, m.Name)
}
