package archive

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Convention identifies the filename scheme an index was extracted from.
type Convention int

const (
	// ConventionDICOM is prefix_<run>_<frame>.dcm.
	ConventionDICOM Convention = iota + 1
	// ConventionLegacy is the dot-separated scanner export (*.IMA).
	ConventionLegacy
)

func (c Convention) String() string {
	switch c {
	case ConventionDICOM:
		return "dicom"
	case ConventionLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

const (
	legacyRunOffset    = 3
	legacyTailOffset   = 11
	legacyTailMinParts = 12
)

// Index is what a filename reveals about the image it names.
type Index struct {
	Convention Convention
	// Prefix is the leading segment of the name.
	Prefix string
	// Run is the measurement number.
	Run int
	// Frame is the volume number within the run; valid when HasFrame is set.
	Frame    int
	HasFrame bool
	// Conflict holds the measurement number of the secondary legacy offset when
	// it parses to a different value than the primary one.
	Conflict    int
	HasConflict bool
}

// Classify extracts the measurement index from an image filename. Names with
// the legacy extension try the legacy convention first; everything else tries
// the DICOM convention first.
func Classify(name string) (Index, bool) {
	if strings.EqualFold(filepath.Ext(name), ".ima") {
		if idx, ok := ClassifyLegacy(name); ok {
			return idx, true
		}
		return ClassifyDICOM(name)
	}
	if idx, ok := ClassifyDICOM(name); ok {
		return idx, true
	}
	return ClassifyLegacy(name)
}

// ClassifyDICOM reads prefix_<run>_<frame>[.ext].
func ClassifyDICOM(name string) (Index, bool) {
	base := filepath.Base(name)
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return Index{}, false
	}
	run, ok := parseIndex(parts[1])
	if !ok {
		return Index{}, false
	}
	idx := Index{Convention: ConventionDICOM, Prefix: parts[0], Run: run}
	if len(parts) > 2 {
		frameToken, _, _ := strings.Cut(parts[2], ".")
		if frame, ok := parseIndex(frameToken); ok {
			idx.Frame = frame
			idx.HasFrame = true
		}
	}
	return idx, true
}

// ClassifyLegacy reads the run number from the fourth dot segment or, for
// names with more than eleven segments, from the eleventh segment counted from
// the end. The fixed offset is authoritative when both parse.
func ClassifyLegacy(name string) (Index, bool) {
	base := filepath.Base(name)
	parts := strings.Split(base, ".")

	primary, primaryOK := legacyAt(parts, legacyRunOffset)
	tail, tailOK := Index{}, false
	if len(parts) >= legacyTailMinParts {
		tail, tailOK = legacyAt(parts, len(parts)-legacyTailOffset)
	}

	switch {
	case primaryOK:
		if tailOK && tail.Run != primary.Run {
			primary.Conflict = tail.Run
			primary.HasConflict = true
		}
		return primary, true
	case tailOK:
		return tail, true
	default:
		return Index{}, false
	}
}

func legacyAt(parts []string, offset int) (Index, bool) {
	if offset < 0 || offset >= len(parts) {
		return Index{}, false
	}
	run, ok := parseIndex(parts[offset])
	if !ok {
		return Index{}, false
	}
	idx := Index{Convention: ConventionLegacy, Prefix: parts[0], Run: run}
	if offset+1 < len(parts) {
		if frame, ok := parseIndex(parts[offset+1]); ok {
			idx.Frame = frame
			idx.HasFrame = true
		}
	}
	return idx, true
}

func parseIndex(token string) (int, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return n, true
}

// BVName is the BrainVoyager name of an image: <prefix>-<run>-0001-<frame>.dcm.
func BVName(idx Index) (string, error) {
	if !idx.HasFrame {
		return "", fmt.Errorf("no frame number in %s name", idx.Convention)
	}
	return fmt.Sprintf("%s-%04d-0001-%05d.dcm", idx.Prefix, idx.Run, idx.Frame), nil
}

// TBVName is the Turbo-BrainVoyager name of an image: 001_<run>_<frame>.dcm.
func TBVName(idx Index) (string, error) {
	if !idx.HasFrame {
		return "", fmt.Errorf("no frame number in %s name", idx.Convention)
	}
	return fmt.Sprintf("001_%06d_%06d.dcm", idx.Run, idx.Frame), nil
}
