package archive

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"sst/internal/config"
	"sst/internal/logging"
)

// Locator finds the image files of a measurement in a source directory.
type Locator struct {
	dicomExt  string
	legacyExt string
	logger    *slog.Logger
}

// NewLocator builds a locator for the extensions configured in cfg.
func NewLocator(cfg config.Archive, logger *slog.Logger) *Locator {
	dicomExt := cfg.DICOMExtension
	if dicomExt == "" {
		dicomExt = ".dcm"
	}
	legacyExt := cfg.LegacyExtension
	if legacyExt == "" {
		legacyExt = ".IMA"
	}
	return &Locator{
		dicomExt:  dicomExt,
		legacyExt: legacyExt,
		logger:    logging.NewComponentLogger(logger, "locator"),
	}
}

// Locate returns the sorted absolute paths of the images belonging to
// measurement number. Sub-folders named <number>-<anything> are searched
// first; the source root is searched when they yield nothing. Unreadable
// locations and unparsable names are skipped.
func (l *Locator) Locate(source string, number int) []string {
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}

	var found []string
	for _, dir := range l.numberedFolders(source, number) {
		found = append(found, l.scan(dir, number)...)
	}
	if len(found) == 0 {
		found = l.scan(source, number)
	}
	sort.Strings(found)
	return found
}

// numberedFolders lists the sub-folders of source whose numeric prefix equals
// number.
func (l *Locator) numberedFolders(source string, number int) []string {
	entries, err := os.ReadDir(source)
	if err != nil {
		l.logger.Debug("source listing failed", logging.String("source", source), logging.Error(err))
		return nil
	}
	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, ok := FolderNumber(entry.Name())
		if !ok || n != number {
			continue
		}
		dirs = append(dirs, filepath.Join(source, entry.Name()))
	}
	return dirs
}

// Classify extracts the index of an image name according to its extension:
// DICOM names use the underscore convention, legacy names the dot convention.
func (l *Locator) Classify(name string) (Index, bool) {
	switch filepath.Ext(name) {
	case l.dicomExt:
		return ClassifyDICOM(name)
	case l.legacyExt:
		return ClassifyLegacy(name)
	default:
		return Index{}, false
	}
}

// FolderNumber parses the <int> of a <int>-<rest> folder name.
func FolderNumber(name string) (int, bool) {
	prefix, _, found := strings.Cut(name, "-")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

// scan runs the DICOM pass and, when it finds nothing, the legacy pass over
// the files directly inside dir.
func (l *Locator) scan(dir string, number int) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.logger.Debug("image scan failed", logging.String("dir", dir), logging.Error(err))
		return nil
	}
	if found := l.pass(dir, entries, l.dicomExt, ClassifyDICOM, number); len(found) > 0 {
		return found
	}
	return l.pass(dir, entries, l.legacyExt, ClassifyLegacy, number)
}

func (l *Locator) pass(dir string, entries []os.DirEntry, ext string, classify func(string) (Index, bool), number int) []string {
	var found []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		idx, ok := classify(name)
		if !ok {
			l.logger.Debug("image name not classified", logging.String("file", name))
			continue
		}
		if idx.HasConflict {
			l.logger.Debug(
				"legacy offsets disagree; using fixed offset",
				logging.String("file", name),
				logging.Int("run", idx.Run),
				logging.Int("tail_run", idx.Conflict),
			)
		}
		if idx.Run == number {
			found = append(found, filepath.Join(dir, name))
		}
	}
	return found
}
