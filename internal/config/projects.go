package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectsFileName is the pick-list file looked up in the working directory
// and then in the home directory.
const ProjectsFileName = "sst.yaml"

// MeasurementPreset is a pre-defined measurement offered for a project.
type MeasurementPreset struct {
	Name     string `yaml:"Name"`
	Vols     int    `yaml:"Vols"`
	Comments string `yaml:"Comments"`
}

// Project holds the pick-lists of a single project.
type Project struct {
	SubjectTypes []string            `yaml:"SubjectTypes"`
	SessionTypes []string            `yaml:"SessionTypes"`
	Users        []string            `yaml:"Users"`
	Backups      []string            `yaml:"Backups"`
	Notes        string              `yaml:"Notes"`
	Files        []string            `yaml:"Files"`
	Checklist    []string            `yaml:"Checklist"`
	Anatomical   []MeasurementPreset `yaml:"Measurements anatomical"`
	Functional   []MeasurementPreset `yaml:"Measurements functional"`
	Misc         []MeasurementPreset `yaml:"Measurements misc"`
}

// Projects maps project identifiers to their pick-lists.
type Projects map[string]Project

// Names returns the configured project identifiers in sorted order.
func (p Projects) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets returns the measurement presets for a measurement type
// ("anatomical", "functional", or "misc").
func (p Project) Presets(measurementType string) []MeasurementPreset {
	switch strings.ToLower(strings.TrimSpace(measurementType)) {
	case "anatomical":
		return p.Anatomical
	case "functional":
		return p.Functional
	case "misc":
		return p.Misc
	default:
		return nil
	}
}

// LoadProjects reads project pick-lists. An explicit path must exist; with an
// empty path the working directory and then the home directory are searched,
// and an empty set is returned when neither holds a file.
func LoadProjects(path string) (Projects, string, error) {
	resolved, err := resolveProjectsPath(path)
	if err != nil {
		return nil, "", err
	}
	if resolved == "" {
		return Projects{}, "", nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("read projects: %w", err)
	}
	projects := Projects{}
	if err := yaml.Unmarshal(data, &projects); err != nil {
		return nil, "", fmt.Errorf("parse projects %s: %w", resolved, err)
	}
	for name, project := range projects {
		project.Files = trimList(project.Files)
		project.Checklist = trimList(project.Checklist)
		projects[name] = project
	}
	return projects, resolved, nil
}

func resolveProjectsPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", fmt.Errorf("stat projects: %w", err)
		}
		return expanded, nil
	}

	candidates := []string{ProjectsFileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ProjectsFileName))
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return filepath.Abs(candidate)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat projects: %w", err)
		}
	}
	return "", nil
}

func trimList(values []string) []string {
	out := values[:0]
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
