package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	workDir    string
	configPath string
	stateDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	workDir := filepath.Join(base, "work")
	for _, dir := range []string{homeDir, workDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	t.Setenv("HOME", homeDir)
	t.Chdir(workDir)

	env := &cliTestEnv{
		baseDir:    base,
		workDir:    workDir,
		configPath: filepath.Join(base, "config.toml"),
		stateDir:   filepath.Join(base, "state"),
	}
	content := fmt.Sprintf(
		"[paths]\nlog_dir = %q\nstate_dir = %q\n\n[logging]\nlevel = \"warn\"\n\n[archive]\nmin_free_mib = 0\n",
		filepath.Join(base, "logs"),
		env.stateDir,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeProjects(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sst.yaml")
	content := `
ProjA:
    SubjectTypes:
        - Patient
        - Control
    Users:
        - Alice
        - Bob
    Backups:
        - Carol
    Notes: |
           Handedness:
    Files:
        - "*.pdf"
    Checklist:
        - Debriefing Form
    Measurements anatomical:
        - Name:        Anatomy
          Vols:        192
    Measurements functional:
        - Name:        Run1
          Vols:        10
          Comments:    first run
ProjB:
    Users:
        - Operator
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write projects: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
