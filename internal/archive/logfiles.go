package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sst/internal/fileutil"
	"sst/internal/services"
	"sst/internal/session"
)

const stepLogfiles = "logfiles"

// CopyPatterns resolves a newline-delimited pattern list against source and
// copies the matches into dest. A line naming a sub-directory of source is
// copied as a tree and fails when the target tree already exists. Other lines
// are globbed; a wildcard line is replaced in the returned text by the
// basenames it matched, in glob order. Lines without matches stay as they are
// and produce one not-found error each. Failures never stop later lines.
func CopyPatterns(source, dest, text string) (string, []error) {
	var (
		resolved []string
		errs     []error
	)
	for _, line := range session.SplitPatterns(text) {
		names, err := copyPattern(source, dest, line)
		if err != nil {
			errs = append(errs, err)
		}
		if err == nil && strings.Contains(line, "*") {
			resolved = append(resolved, names...)
			continue
		}
		resolved = append(resolved, line)
	}
	return strings.Join(resolved, "\n"), errs
}

// copyPattern handles one line and returns the basenames of the files it
// copied.
func copyPattern(source, dest, line string) ([]string, error) {
	candidate := filepath.Join(source, line)
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		target := filepath.Join(dest, line)
		if err := Ensure(filepath.Dir(target)); err != nil {
			return nil, services.Wrap(services.ErrFilesystem, stepLogfiles, "copy directory", fmt.Sprintf("'%s'", line), err)
		}
		if err := fileutil.CopyTree(candidate, target); err != nil {
			return nil, services.Wrap(services.ErrFilesystem, stepLogfiles, "copy directory", fmt.Sprintf("'%s'", line), err)
		}
		return nil, nil
	}

	matches, err := filepath.Glob(candidate)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stepLogfiles, "resolve", fmt.Sprintf("'%s' is not a valid pattern", line), err)
	}
	hidden := strings.HasPrefix(filepath.Base(line), ".")
	var files []string
	for _, match := range matches {
		if !hidden && strings.HasPrefix(filepath.Base(match), ".") {
			continue
		}
		if info, err := os.Stat(match); err == nil && info.Mode().IsRegular() {
			files = append(files, match)
		}
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrNotFound, stepLogfiles, "resolve", fmt.Sprintf("'%s' not found", line), nil)
	}

	var copied []string
	for _, file := range files {
		name := filepath.Base(file)
		if err := fileutil.CopyFile(file, filepath.Join(dest, name)); err != nil {
			return copied, services.Wrap(services.ErrFilesystem, stepLogfiles, "copy", fmt.Sprintf("'%s'", line), err)
		}
		copied = append(copied, name)
	}
	return copied, nil
}
