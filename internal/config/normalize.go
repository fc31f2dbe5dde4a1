package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeArchive()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Projects) != "" {
		if c.Paths.Projects, err = expandPath(c.Paths.Projects); err != nil {
			return fmt.Errorf("paths.projects: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.DICOMExtension = normalizeExtension(c.Archive.DICOMExtension, defaultDICOMExtension)
	c.Archive.LegacyExtension = normalizeExtension(c.Archive.LegacyExtension, defaultLegacyExtension)
	c.Archive.TBVDir = strings.TrimSpace(c.Archive.TBVDir)
	if c.Archive.TBVDir == "" {
		c.Archive.TBVDir = defaultTBVDir
	}
	c.Archive.ReferenceAnatomy = strings.TrimSpace(c.Archive.ReferenceAnatomy)

	if len(c.Archive.DocumentExtensions) == 0 {
		c.Archive.DocumentExtensions = defaultDocumentExtensions()
	} else {
		exts := make([]string, 0, len(c.Archive.DocumentExtensions))
		seen := make(map[string]struct{}, len(c.Archive.DocumentExtensions))
		for _, ext := range c.Archive.DocumentExtensions {
			normalized := strings.ToLower(normalizeExtension(ext, ""))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		if len(exts) == 0 {
			exts = defaultDocumentExtensions()
		}
		c.Archive.DocumentExtensions = exts
	}
	if c.Archive.MinFreeMiB < 0 {
		c.Archive.MinFreeMiB = 0
	}
}

// normalizeExtension trims the value and guarantees a leading dot. Case is
// preserved: the legacy ".IMA" extension is matched case-sensitively.
func normalizeExtension(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, ".") {
		value = "." + value
	}
	return value
}
