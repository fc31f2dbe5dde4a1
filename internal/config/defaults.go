package config

const (
	defaultLogDir           = "~/.local/share/sst/logs"
	defaultStateDir         = "~/.local/state/sst"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultDICOMExtension   = ".dcm"
	defaultLegacyExtension  = ".IMA"
	defaultTBVDir           = "TBVFiles"
	defaultReferenceAnatomy = "Anatomy"
	defaultMinFreeMiB       = 512
)

func defaultDocumentExtensions() []string {
	return []string{".txt", ".pdf", ".doc", ".docx", ".odt"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Archive: Archive{
			DICOMExtension:     defaultDICOMExtension,
			LegacyExtension:    defaultLegacyExtension,
			TBVDir:             defaultTBVDir,
			ReferenceAnatomy:   defaultReferenceAnatomy,
			DocumentExtensions: defaultDocumentExtensions(),
			Hardlinks:          true,
			MinFreeMiB:         defaultMinFreeMiB,
		},
	}
}
