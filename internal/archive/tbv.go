package archive

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"sst/internal/fileutil"
	"sst/internal/logging"
	"sst/internal/services"
	"sst/internal/session"
)

const (
	stepTBV = "tbv"

	tbvExtension     = ".tbv"
	firstVolumeField = "DicomFirstVolumeNr"
)

// FirstVolumeNumber reads the DicomFirstVolumeNr marker of a
// Turbo-BrainVoyager settings file. The value is the last space-separated
// token of the line; the last marker line in the file wins.
func FirstVolumeNumber(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	value, found := "", false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, firstVolumeField) {
			continue
		}
		fields := strings.Split(strings.TrimRight(line, "\r\n"), " ")
		value, found = strings.TrimSpace(fields[len(fields)-1]), true
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%s: %w", firstVolumeField, services.ErrNotFound)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", firstVolumeField, value, err)
	}
	return n, nil
}

// integrateTBV copies the Turbo-BrainVoyager folder of the source into the
// session and links the images of every run a settings file refers to.
func (a *Archiver) integrateTBV(ctx context.Context, j *job) {
	if a.cfg.TBVDir == "" {
		return
	}
	src := filepath.Join(j.source, a.cfg.TBVDir)
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return
	}
	ctx = services.WithStep(ctx, stepTBV)
	logger := logging.WithContext(ctx, a.logger)
	a.progressf("Copying Turbo-BrainVoyager files")

	tbvDir := j.paths.TBVDir()
	copied := filepath.Join(tbvDir, a.cfg.TBVDir)
	if err := Ensure(tbvDir); err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, stepTBV, "create TBV folder", "", err))
		return
	}
	if err := fileutil.CopyTree(src, copied); err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, stepTBV, "copy", a.cfg.TBVDir, err))
	}

	settings, err := filepath.Glob(filepath.Join(copied, "*"+tbvExtension))
	if err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, stepTBV, "list settings files", "", err))
		return
	}
	sort.Strings(settings)

	lk := newLinker(tbvDir, a.cfg.Hardlinks)
	for _, file := range settings {
		n, err := a.linkTBVRun(j, lk, file)
		if err != nil {
			a.recordAs(ctx, j, services.SeverityWarning, services.Wrap(services.ErrFilesystem, stepTBV, "links for "+filepath.Base(file), "", err))
			continue
		}
		logger.Info("Turbo-BrainVoyager links created", logging.String("file", filepath.Base(file)), logging.Int("links", n))
	}
	if err := lk.close(); err != nil {
		a.recordAs(ctx, j, services.SeverityWarning, services.Wrap(services.ErrFilesystem, stepTBV, "write "+ReferenceCopiesFile, "", err))
	}
}

// linkTBVRun links the archived images of the run named by one settings file
// and returns the number of links made.
func (a *Archiver) linkTBVRun(j *job, lk *linker, file string) (int, error) {
	run, err := FirstVolumeNumber(file)
	if err != nil {
		return 0, err
	}

	m, ok := j.record.Measurement(run)
	if !ok || m.Type != session.Functional {
		return 0, fmt.Errorf("run %d: no functional measurement: %w", run, services.ErrNotFound)
	}
	dicomDir := j.paths.DICOMDir(m)
	images, err := os.ReadDir(dicomDir)
	if err != nil {
		return 0, fmt.Errorf("run %d not archived: %w", run, err)
	}

	linked := 0
	var errs []string
	for _, image := range images {
		idx, ok := a.locator.Classify(image.Name())
		if !ok || idx.Run != run {
			continue
		}
		name, err := TBVName(idx)
		if err == nil {
			err = lk.link(filepath.Join(dicomDir, image.Name()), name)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", image.Name(), err))
			continue
		}
		linked++
	}
	if len(errs) > 0 {
		return linked, fmt.Errorf("run %d: %s", run, strings.Join(errs, "; "))
	}
	return linked, nil
}
