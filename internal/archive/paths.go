package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"sst/internal/session"
	"sst/internal/textutil"
)

const (
	dicomFolder = "DICOM"
	bvFolder    = "BV"
	tbvFolder   = "TBV"
)

// PathBuilder derives the destination folders of one session inside an
// archive root. It performs no I/O except in Ensure.
type PathBuilder struct {
	root   string
	record session.SessionRecord
}

// NewPathBuilder returns a builder for record below root.
func NewPathBuilder(root string, record session.SessionRecord) PathBuilder {
	return PathBuilder{root: root, record: record}
}

// Root returns the archive root.
func (p PathBuilder) Root() string { return p.root }

// ProjectDir is <root>/<project>.
func (p PathBuilder) ProjectDir() string {
	return filepath.Join(p.root, textutil.SanitizeSegment(p.record.Project, "Project"))
}

// SubjectDir is <project>/sub-NNN[-type].
func (p PathBuilder) SubjectDir() string {
	return filepath.Join(p.ProjectDir(), textutil.SanitizeSegment(p.record.SubjectLabel(), "sub"))
}

// SessionDir is <subject>/ses-NNN[-type]. Session documents, logfiles and the
// protocol are stored here.
func (p PathBuilder) SessionDir() string {
	return filepath.Join(p.SubjectDir(), textutil.SanitizeSegment(p.record.SessionLabel(), "ses"))
}

// MeasurementDir is <session>/<type>/NNN-<name>.
func (p PathBuilder) MeasurementDir(m session.Measurement) string {
	typeDir := textutil.SanitizeSegment(string(m.Type), string(session.Misc))
	name := textutil.SanitizeSegment(m.Folder(), fmt.Sprintf("%03d", m.Number))
	return filepath.Join(p.SessionDir(), typeDir, name)
}

// DICOMDir is <measurement>/DICOM.
func (p PathBuilder) DICOMDir(m session.Measurement) string {
	return filepath.Join(p.MeasurementDir(m), dicomFolder)
}

// BVDir holds the session's BrainVoyager links.
func (p PathBuilder) BVDir() string { return filepath.Join(p.SessionDir(), bvFolder) }

// TBVDir holds the session's Turbo-BrainVoyager files and links.
func (p PathBuilder) TBVDir() string { return filepath.Join(p.SessionDir(), tbvFolder) }

// Ensure creates path and its parents if absent. Existing folders and their
// content are left untouched.
func Ensure(path string) error {
	return os.MkdirAll(path, 0o755)
}
