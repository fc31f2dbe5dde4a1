package testsupport

import (
	"path/filepath"
	"testing"

	"sst/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Archive.MinFreeMiB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutHardlinks makes the archiver write reference copies instead of links.
func WithoutHardlinks() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Hardlinks = false
	}
}

// WithReferenceAnatomy overrides the anatomical measurement name that gets
// BrainVoyager links.
func WithReferenceAnatomy(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.ReferenceAnatomy = name
	}
}

// WithProjectsFile points the config at a projects file below the base dir
// and writes content to it.
func WithProjectsFile(content string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, config.ProjectsFileName)
		WriteText(b.t, path, content)
		b.cfg.Paths.Projects = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
