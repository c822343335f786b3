package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/arqrel/internal/model"
	"github.com/sadopc/arqrel/internal/ops"
)

const helperEnvKey = "GO_WANT_ARQREL_HELPER_PROCESS"

type cliResult struct {
	stdout   string
	stderr   string
	exitCode int
}

func TestCLIHelperProcess(t *testing.T) {
	if os.Getenv(helperEnvKey) != "1" {
		return
	}

	sep := -1
	for i, arg := range os.Args {
		if arg == "--" {
			sep = i
			break
		}
	}
	if sep == -1 {
		fmt.Fprintln(os.Stderr, "missing -- argument separator for helper process")
		os.Exit(2)
	}

	os.Args = append([]string{os.Args[0]}, os.Args[sep+1:]...)

	main()
	os.Exit(0)
}

func TestE2E_SingleReport(t *testing.T) {
	scanRoot := createScanFixture(t)
	out := t.TempDir()

	result := runCLI(t, nil, "--progress", "off", "-o", out, scanRoot)
	require.Equal(t, 0, result.exitCode, "stdout:\n%s\nstderr:\n%s", result.stdout, result.stderr)

	files, err := filepath.Glob(filepath.Join(out, "arq-rel_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, result.stdout, "Report written to "+files[0])
	assert.Contains(t, result.stdout, "Source code")

	report, err := ops.ReadReport(files[0])
	require.NoError(t, err)

	sum := report.Summary
	assert.EqualValues(t, 3, sum.DirectoriesFound)
	assert.EqualValues(t, 4, sum.FilesFound)
	assert.EqualValues(t, 1, sum.Categories[model.CatSource])
	assert.EqualValues(t, 2, sum.Categories[model.CatConfig])
	assert.EqualValues(t, 1, sum.Categories[model.CatUnknown])
	assert.Equal(t, sum.FilesFound, sum.CategoryTotal())

	require.Len(t, report.Records, 4)
	alpha := findRecord(report.Records, "a.txt")
	require.NotNil(t, alpha)
	digest := sha256.Sum256([]byte("alpha"))
	assert.Equal(t, hex.EncodeToString(digest[:]), alpha.ContentHash)
	assert.Equal(t, "5 bytes", alpha.SizeFormatted)
	assert.Equal(t, "txt", alpha.Extension)
	assert.Nil(t, findRecord(report.Records, "link.txt"), "symlinks are skipped by default")
}

func TestE2E_FollowSymlinks(t *testing.T) {
	scanRoot := createScanFixture(t)
	out := t.TempDir()

	result := runCLI(t, nil, "--progress", "off", "--follow-symlinks", "-o", out, scanRoot)
	require.Equal(t, 0, result.exitCode, "stderr:\n%s", result.stderr)

	report := readOnlyReport(t, out, "arq-rel_*.json")
	assert.EqualValues(t, 5, report.Summary.FilesFound)
	assert.NotNil(t, findRecord(report.Records, "link.txt"))
}

func TestE2E_SplitYAMLSummaryOnly(t *testing.T) {
	scanRoot := createScanFixture(t)
	out := t.TempDir()

	result := runCLI(t, nil, "--progress", "off", "--layout", "split", "--format", "yaml", "--summary", "-o", out, scanRoot)
	require.Equal(t, 0, result.exitCode, "stderr:\n%s", result.stderr)

	dirs, err := filepath.Glob(filepath.Join(out, "*-*-*_*-*-*"))
	require.NoError(t, err)
	require.Len(t, dirs, 1)

	_, err = os.Stat(filepath.Join(dirs[0], "summary.yaml"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dirs[0], "attributes.yaml"))
	assert.True(t, os.IsNotExist(err), "summary-only split report must not write attributes")

	report, err := ops.ReadReport(dirs[0])
	require.NoError(t, err)
	assert.EqualValues(t, 4, report.Summary.FilesFound)
	assert.Empty(t, report.Records)
}

func TestE2E_ReportToStdoutIsJSONOnly(t *testing.T) {
	scanRoot := createScanFixture(t)

	result := runCLI(t, nil, "--progress", "off", "-o", "-", scanRoot)
	require.Equal(t, 0, result.exitCode, "stderr:\n%s", result.stderr)
	assert.NotContains(t, result.stdout, "Report written")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(result.stdout), &doc), "stdout:\n%s", result.stdout)
	assert.Contains(t, doc, "summary")
	assert.Contains(t, doc, "individual_results")
}

func TestE2E_NoReport(t *testing.T) {
	scanRoot := createScanFixture(t)

	result := runCLI(t, nil, "--progress", "off", "--no-report", scanRoot)
	require.Equal(t, 0, result.exitCode, "stderr:\n%s", result.stderr)
	assert.Contains(t, result.stdout, "Source code")
	assert.NotContains(t, result.stdout, "Report written")
}

func TestE2E_SilentPrintsNothing(t *testing.T) {
	scanRoot := createScanFixture(t)

	result := runCLI(t, nil, "--progress", "off", "--silent", "--no-report", scanRoot)
	require.Equal(t, 0, result.exitCode, "stderr:\n%s", result.stderr)
	assert.Empty(t, strings.TrimSpace(result.stdout))
	assert.Empty(t, strings.TrimSpace(result.stderr))
}

func TestE2E_EnvironmentSelectsFormat(t *testing.T) {
	scanRoot := createScanFixture(t)
	out := t.TempDir()

	result := runCLI(t, []string{"ARQREL_REPORT_FORMAT=yaml"}, "--progress", "off", "-o", out, scanRoot)
	require.Equal(t, 0, result.exitCode, "stderr:\n%s", result.stderr)

	report := readOnlyReport(t, out, "arq-rel_*.yaml")
	assert.EqualValues(t, 4, report.Summary.FilesFound)
}

func TestE2E_InvalidRootFails(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	missing := filepath.Join(t.TempDir(), "missing")

	result := runCLI(t, nil, "--progress", "off", "-o", out, missing)
	require.NotEqual(t, 0, result.exitCode)
	assert.Contains(t, result.stderr, "Error:")
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "no report directory should be created")
}

func TestE2E_FlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"verbose and silent", []string{"-v", "-s", "."}, "cannot be used together"},
		{"bad layout", []string{"--layout", "tree", "."}, "layout"},
		{"split to stdout", []string{"--layout", "split", "-o", "-", "."}, "stdout"},
		{"path and positional", []string{"--path", ".", "."}, "--path"},
		{"host port", []string{"alice@example.com:2222"}, "--ssh-port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runCLI(t, nil, tt.args...)
			require.NotEqual(t, 0, result.exitCode)
			assert.Contains(t, result.stderr, tt.want)
		})
	}
}

func TestE2E_ShowSortsAndLimits(t *testing.T) {
	scanRoot := createScanFixture(t)
	out := t.TempDir()

	result := runCLI(t, nil, "--progress", "off", "-s", "-o", out, scanRoot)
	require.Equal(t, 0, result.exitCode, "stderr:\n%s", result.stderr)
	files, err := filepath.Glob(filepath.Join(out, "arq-rel_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	result = runCLI(t, nil, "show", files[0], "--sort", "size", "--desc", "--limit", "2")
	require.Equal(t, 0, result.exitCode, "stderr:\n%s", result.stderr)
	assert.Contains(t, result.stdout, "2 of 4 records shown")
	// b.go (13 bytes) and .hidden.txt (10 bytes) are the largest files
	assert.Contains(t, result.stdout, "b.go")
	assert.Contains(t, result.stdout, ".hidden.txt")
	assert.NotContains(t, result.stdout, "notes.md")

	result = runCLI(t, nil, "show", files[0], "--sort", "colour")
	require.NotEqual(t, 0, result.exitCode)
	assert.Contains(t, result.stderr, "unknown sort field")
}

func TestE2E_VersionAndHistory(t *testing.T) {
	result := runCLI(t, nil, "version")
	require.Equal(t, 0, result.exitCode)
	assert.Equal(t, "arqrel dev\n", result.stdout)

	result = runCLI(t, []string{"ARQREL_DATABASE_URL="}, "history")
	require.NotEqual(t, 0, result.exitCode)
	assert.Contains(t, result.stderr, "no database configured")
}

func runCLI(t *testing.T, env []string, args ...string) cliResult {
	t.Helper()

	cmdArgs := append([]string{"-test.run=^TestCLIHelperProcess$", "--"}, args...)
	cmd := exec.Command(os.Args[0], cmdArgs...)
	cmd.Env = append(append(os.Environ(), helperEnvKey+"=1"), env...)
	cmd.Dir = t.TempDir()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := cliResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
	}

	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("failed to execute helper process: %v", err)
	}

	result.exitCode = exitErr.ExitCode()
	return result
}

func readOnlyReport(t *testing.T, dir, pattern string) *model.Report {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	require.NoError(t, err)
	require.Len(t, files, 1)
	report, err := ops.ReadReport(files[0])
	require.NoError(t, err)
	return report
}

func findRecord(records []model.FileRecord, name string) *model.FileRecord {
	for i := range records {
		if records[i].Name == name {
			return &records[i]
		}
	}
	return nil
}

func createScanFixture(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	mustMkdirAll(t, filepath.Join(root, "keep", "sub"))
	mustMkdirAll(t, filepath.Join(root, "docs"))

	mustWriteFile(t, filepath.Join(root, "keep", "a.txt"), "alpha")
	mustWriteFile(t, filepath.Join(root, "keep", "sub", "b.go"), "package main\n")
	mustWriteFile(t, filepath.Join(root, "docs", "notes.md"), "# notes")
	mustWriteFile(t, filepath.Join(root, ".hidden.txt"), "top secret")

	if err := os.Symlink(filepath.Join(root, "keep", "a.txt"), filepath.Join(root, "keep", "link.txt")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	return root
}

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %q: %v", path, err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}
