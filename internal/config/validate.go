package config

import (
	"errors"
	"fmt"
	"strings"

	"sst/internal/services"
)

// Validate ensures the configuration is usable. Failures wrap
// services.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
	}
	if err := c.validateArchive(); err != nil {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateArchive() error {
	if strings.EqualFold(c.Archive.DICOMExtension, c.Archive.LegacyExtension) {
		return errors.New("archive.dicom_extension and archive.legacy_extension must differ")
	}
	if strings.ContainsAny(c.Archive.TBVDir, `/\*?`) {
		return fmt.Errorf("archive.tbv_dir must be a plain folder name, got %q", c.Archive.TBVDir)
	}
	for _, ext := range c.Archive.DocumentExtensions {
		if strings.EqualFold(ext, c.Archive.DICOMExtension) || strings.EqualFold(ext, c.Archive.LegacyExtension) {
			return fmt.Errorf("archive.document_extensions must not include image extension %q", ext)
		}
	}
	return nil
}
