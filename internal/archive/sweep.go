package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"sst/internal/fileutil"
	"sst/internal/logging"
	"sst/internal/services"
)

const stepDocuments = "documents"

// SweepDocuments lists the top-level files of source whose extension is in
// extensions and whose basename is not in claimed. Hidden files are skipped.
func SweepDocuments(source string, extensions []string, claimed []string) ([]string, error) {
	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	skip := make(map[string]struct{}, len(claimed))
	for _, name := range claimed {
		skip[name] = struct{}{}
	}

	var docs []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		if _, ok := skip[name]; ok {
			continue
		}
		docs = append(docs, filepath.Join(source, name))
	}
	return docs, nil
}

// sweepDocuments copies the general documents of the source into the session
// folder.
func (a *Archiver) sweepDocuments(ctx context.Context, j *job) {
	ctx = services.WithStep(ctx, stepDocuments)
	a.progressf("Archiving general documents")

	docs, err := SweepDocuments(j.source, a.cfg.DocumentExtensions, j.record.LogfileNames())
	if err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, stepDocuments, "list source", "", err))
		return
	}
	if len(docs) == 0 {
		j.report.Add(services.SeverityInfo, "no general documents found")
		return
	}

	sessionDir := j.paths.SessionDir()
	if err := Ensure(sessionDir); err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, stepDocuments, "create session folder", "", err))
		return
	}
	copied := 0
	for _, doc := range docs {
		if err := fileutil.CopyFile(doc, filepath.Join(sessionDir, filepath.Base(doc))); err != nil {
			a.record(ctx, j, services.Wrap(services.ErrFilesystem, stepDocuments, "copy", filepath.Base(doc), err))
			continue
		}
		copied++
	}
	logging.WithContext(ctx, a.logger).Info("general documents copied", logging.Int("files", copied))
}
