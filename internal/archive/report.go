package archive

import (
	"fmt"
	"strings"

	"sst/internal/services"
)

// ReportPrefix starts every rendered report.
const ReportPrefix = "Archived to: "

// Entry is one report line.
type Entry struct {
	Severity services.Severity
	Message  string
}

// Report accumulates the outcome of an archive job in order. It only records;
// adding to it never fails.
type Report struct {
	root    string
	entries []Entry
}

// NewReport starts an empty report for the archive at root.
func NewReport(root string) *Report {
	return &Report{root: root}
}

// Root returns the absolute archive root.
func (r *Report) Root() string { return r.root }

// Add appends an entry.
func (r *Report) Add(severity services.Severity, format string, args ...any) {
	r.entries = append(r.entries, Entry{Severity: severity, Message: fmt.Sprintf(format, args...)})
}

// AddError appends err with the severity its marker maps to.
func (r *Report) AddError(err error) {
	if err == nil {
		return
	}
	r.entries = append(r.entries, Entry{Severity: services.SeverityOf(err), Message: err.Error()})
}

// AddAs appends err with an explicit severity.
func (r *Report) AddAs(severity services.Severity, err error) {
	if err == nil {
		return
	}
	r.entries = append(r.entries, Entry{Severity: severity, Message: err.Error()})
}

// Entries returns a copy of all entries in insertion order.
func (r *Report) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Filter returns the entries of one severity.
func (r *Report) Filter(severity services.Severity) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Severity == severity {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of entries with the given severity.
func (r *Report) Count(severity services.Severity) int {
	return len(r.Filter(severity))
}

// Clean reports whether nothing above info was recorded.
func (r *Report) Clean() bool {
	return r.Count(services.SeverityWarning) == 0 && r.Count(services.SeverityError) == 0
}

var reportSections = []struct {
	severity services.Severity
	title    string
}{
	{services.SeverityError, "Errors"},
	{services.SeverityWarning, "Warnings"},
	{services.SeverityInfo, "Notes"},
}

// String renders the report: the archive root line followed by one section
// per severity that has entries.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString(ReportPrefix)
	b.WriteString(r.root)
	b.WriteByte('\n')
	for _, section := range reportSections {
		entries := r.Filter(section.severity)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d):\n", section.title, len(entries))
		for _, e := range entries {
			b.WriteString("  - ")
			b.WriteString(e.Message)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
