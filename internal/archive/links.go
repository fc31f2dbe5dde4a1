package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sst/internal/fileutil"
	"sst/internal/logging"
	"sst/internal/services"
	"sst/internal/session"
)

const (
	stepLinks = "links"

	// ReferenceCopiesFile lists the files of a link folder that are copies
	// because the filesystem refused a hard link.
	ReferenceCopiesFile = "REFERENCE_COPIES.txt"
)

// linker hard links files into one folder and keeps track of the names that
// had to be copied instead.
type linker struct {
	dir       string
	allowLink bool
	copies    []string
}

func newLinker(dir string, allowLink bool) *linker {
	return &linker{dir: dir, allowLink: allowLink}
}

func (l *linker) link(src, name string) error {
	linked, err := fileutil.LinkOrCopy(src, filepath.Join(l.dir, name), l.allowLink)
	if err != nil {
		return err
	}
	if !linked {
		l.copies = append(l.copies, name)
	}
	return nil
}

// close appends the reference copies made by this linker to the marker file.
func (l *linker) close() error {
	if len(l.copies) == 0 {
		return nil
	}
	path := filepath.Join(l.dir, ReferenceCopiesFile)
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var b strings.Builder
	if os.IsNotExist(statErr) {
		b.WriteString("# Derived reference copies, not second originals.\n")
		b.WriteString("# The filesystem did not allow hard links for these names.\n")
	}
	for _, name := range l.copies {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return err
	}
	l.copies = nil
	return f.Close()
}

// wantsBVLinks reports whether m gets BrainVoyager links: every functional
// measurement plus the reference anatomy.
func (a *Archiver) wantsBVLinks(m session.Measurement) bool {
	return m.Type == session.Functional || (a.cfg.ReferenceAnatomy != "" && m.Name == a.cfg.ReferenceAnatomy)
}

// buildBVLinks links the copied images of m into the session BV folder.
func (a *Archiver) buildBVLinks(ctx context.Context, j *job, m session.Measurement, copied []string) {
	label := fmt.Sprintf("measurement %d", m.Number)
	dir := j.paths.BVDir()
	if err := Ensure(dir); err != nil {
		a.recordAs(ctx, j, services.SeverityWarning, services.Wrap(services.ErrFilesystem, label, stepLinks, "create BV folder", err))
		return
	}

	lk := newLinker(dir, a.cfg.Hardlinks)
	linked := 0
	for _, image := range copied {
		base := filepath.Base(image)
		idx, ok := a.locator.Classify(base)
		if !ok {
			continue
		}
		name, err := BVName(idx)
		if err == nil {
			err = lk.link(image, name)
		}
		if err != nil {
			a.recordAs(ctx, j, services.SeverityWarning, services.Wrap(services.ErrFilesystem, label, stepLinks, "BrainVoyager link for "+base, err))
			continue
		}
		linked++
	}
	if err := lk.close(); err != nil {
		a.recordAs(ctx, j, services.SeverityWarning, services.Wrap(services.ErrFilesystem, label, stepLinks, "write "+ReferenceCopiesFile, err))
	}
	logging.WithContext(ctx, a.logger).Info("BrainVoyager links created",
		logging.Int("links", linked), logging.String("dir", dir), logging.Bool("hardlinks", lk.allowLink))
}
