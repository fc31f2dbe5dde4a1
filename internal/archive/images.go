package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sst/internal/fileutil"
	"sst/internal/logging"
	"sst/internal/services"
	"sst/internal/session"
)

const stepImages = "images"

// ValidateImages checks a measurement against the images found for it and
// returns every failing condition. Images are copied only when it returns
// nothing.
func ValidateImages(m session.Measurement, images []string) []error {
	label := fmt.Sprintf("measurement %d", m.Number)
	var errs []error
	if m.Name == "" {
		errs = append(errs, services.Wrap(services.ErrValidation, label, stepImages, "'Name' not specified", nil))
	}
	if m.Type == "" {
		errs = append(errs, services.Wrap(services.ErrValidation, label, stepImages, "'Type' not specified", nil))
	} else if _, err := session.ParseMeasurementType(string(m.Type)); err != nil {
		errs = append(errs, services.Wrap(services.ErrValidation, label, stepImages, fmt.Sprintf("'Type' %q not recognised", string(m.Type)), nil))
	}
	if m.Vols <= 0 {
		errs = append(errs, services.Wrap(services.ErrValidation, label, stepImages, "'Vols' not specified", nil))
	}
	if len(images) == 0 {
		errs = append(errs, services.Wrap(services.ErrNotFound, label, stepImages, "no images found", nil))
	}
	if m.Vols > 0 && len(images) > 0 && len(images) != m.Vols {
		errs = append(errs, services.Wrap(services.ErrValidation, label, stepImages,
			fmt.Sprintf("count mismatch: expected %d vols, found %d images", m.Vols, len(images)), nil))
	}
	return errs
}

// copyImages validates and copies the images of one measurement into its
// DICOM folder and returns the copied paths. A failed copy removes the DICOM
// folder again.
func (a *Archiver) copyImages(ctx context.Context, j *job, pos int, m session.Measurement, images []string) []string {
	logger := logging.WithContext(ctx, a.logger)
	if errs := ValidateImages(m, images); len(errs) > 0 {
		for _, err := range errs {
			a.record(ctx, j, err)
		}
		return nil
	}

	label := fmt.Sprintf("measurement %d", m.Number)
	dicomDir := j.paths.DICOMDir(m)
	if err := Ensure(dicomDir); err != nil {
		a.record(ctx, j, services.Wrap(services.ErrFilesystem, label, stepImages, "create directory structure", err))
		return nil
	}

	copied := make([]string, 0, len(images))
	for i, image := range images {
		target := filepath.Join(dicomDir, filepath.Base(image))
		if err := fileutil.CopyFileVerified(image, target); err != nil {
			if rmErr := os.RemoveAll(dicomDir); rmErr != nil {
				logger.Warn("dicom folder cleanup failed", logging.String("dir", dicomDir), logging.Error(rmErr))
			}
			a.record(ctx, j, services.Wrap(services.ErrFilesystem, label, stepImages, "copy "+filepath.Base(image), err))
			return nil
		}
		copied = append(copied, target)
		a.progressf("Archiving measurement %d of %d (copying image %d of %d)", pos+1, len(j.record.Measurements), i+1, len(images))
	}
	logger.Info("images copied", logging.Int("files", len(copied)), logging.String("dir", dicomDir))
	return copied
}
