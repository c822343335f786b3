package scanner

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sadopc/arqrel/internal/model"
)

// memSource builds an in-memory tree from path -> content. Paths ending in
// "/" are created as directories.
func memSource(t *testing.T, tree map[string]string) Source {
	t.Helper()
	mem := afero.NewMemMapFs()
	for p, content := range tree {
		if p[len(p)-1] == '/' {
			require.NoError(t, mem.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, mem.MkdirAll(path.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(mem, p, []byte(content), 0o644))
	}
	return Source{Fs: mem, Name: "mem"}
}

// denyFs fails Open for the listed paths with a permission error.
type denyFs struct {
	afero.Fs
	deny map[string]bool
}

func (d denyFs) Open(name string) (afero.File, error) {
	if d.deny[name] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return d.Fs.Open(name)
}

func sampleTree(t *testing.T) Source {
	return memSource(t, map[string]string{
		"/data/README":            "readme",
		"/data/a.go":              "package a",
		"/data/b/c.sh":            "#!/bin/sh",
		"/data/b/d/e.tar.gz":      "gz",
		"/data/b/d/settings.yaml": "k: v",
		"/data/empty/":            "",
	})
}

func TestSession_BreadthFirstCounts(t *testing.T) {
	src := sampleTree(t)
	s := NewSession(src, "/data", nil, DefaultOptions())

	report, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, s.State())

	sum := report.Summary
	assert.Equal(t, "/data", sum.BaseDir)
	assert.EqualValues(t, 3, sum.DirectoriesFound, "b, b/d and empty")
	assert.EqualValues(t, 5, sum.FilesFound)
	assert.Equal(t, sum.FilesFound, sum.CategoryTotal())
	assert.Len(t, sum.Categories, model.NumCategories)

	assert.EqualValues(t, 1, sum.Categories[model.CatSource])
	assert.EqualValues(t, 1, sum.Categories[model.CatLinuxShell])
	assert.EqualValues(t, 1, sum.Categories[model.CatOtherBinary], "e.tar.gz classifies by gz")
	assert.EqualValues(t, 1, sum.Categories[model.CatConfig])
	assert.EqualValues(t, 1, sum.Categories[model.CatUnknown])
	assert.EqualValues(t, 0, sum.Categories[model.CatMedia])

	var order []string
	for _, r := range report.Records {
		order = append(order, r.AbsolutePath)
	}
	assert.Equal(t, []string{
		"/data/README",
		"/data/a.go",
		"/data/b/c.sh",
		"/data/b/d/e.tar.gz",
		"/data/b/d/settings.yaml",
	}, order, "records follow breadth-first discovery order")

	assert.Equal(t, sum, *s.Summary())
	assert.Equal(t, report.Records, s.Records())
}

func TestSession_SecondRunRejected(t *testing.T) {
	s := NewSession(sampleTree(t), "/data", nil, DefaultOptions())
	first, err := s.Run()
	require.NoError(t, err)
	files := first.Summary.FilesFound
	cats := first.Summary.Categories

	again, err := s.Run()
	assert.Nil(t, again)
	var done *AlreadyCompletedError
	require.ErrorAs(t, err, &done)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, "/data", done.Root)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, files, s.Summary().FilesFound)
	assert.Equal(t, cats, s.Summary().Categories)
}

func TestSession_InvalidRoot(t *testing.T) {
	src := sampleTree(t)
	tests := []struct {
		name string
		root string
		want error
	}{
		{"missing", "/nope", os.ErrNotExist},
		{"file", "/data/a.go", ErrNotDirectory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(src, tt.root, nil, DefaultOptions())
			report, err := s.Run()
			assert.Nil(t, report)

			var invalid *InvalidRootError
			require.ErrorAs(t, err, &invalid)
			assert.ErrorIs(t, err, ErrInvalidRoot)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, StateIdle, s.State(), "traversal never starts")
			assert.Nil(t, s.Summary())
		})
	}
}

func TestSession_UnreadableDirectoryContained(t *testing.T) {
	base := memSource(t, map[string]string{
		"/root/one.txt":          "1",
		"/root/two.txt":          "2",
		"/root/locked/secret.go": "x",
	})
	src := base
	src.Fs = denyFs{Fs: base.Fs, deny: map[string]bool{"/root/locked": true}}

	core, logs := observer.New(zapcore.DebugLevel)
	opts := DefaultOptions()
	opts.Logger = zap.New(core)

	report, err := NewSession(src, "/root", nil, opts).Run()
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.Summary.FilesFound)
	assert.EqualValues(t, 1, report.Summary.DirectoriesFound, "the locked directory itself was discovered")

	warned := logs.FilterMessage("Directory skipped").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zapcore.WarnLevel, warned[0].Level)
	logged, ok := warned[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, logged, "/root/locked")
}

func TestSession_HashFailureKeepsRecord(t *testing.T) {
	base := memSource(t, map[string]string{
		"/r/ok.txt":   "hello",
		"/r/held.bin": "locked",
	})
	src := base
	src.Fs = denyFs{Fs: base.Fs, deny: map[string]bool{"/r/held.bin": true}}

	report, err := NewSession(src, "/r", nil, DefaultOptions()).Run()
	require.NoError(t, err)
	require.Len(t, report.Records, 2)

	byName := map[string]model.FileRecord{}
	for _, r := range report.Records {
		byName[r.Name] = r
	}
	assert.Equal(t, model.ErrorValue, byName["held.bin"].ContentHash)
	assert.EqualValues(t, 6, byName["held.bin"].SizeBytes, "stat still succeeds")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", byName["ok.txt"].ContentHash)
}

func TestSession_Timing(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	ticks := []time.Time{t0, t0.Add(2 * time.Second)}
	opts := DefaultOptions()
	opts.Now = func() time.Time {
		next := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return next
	}

	report, err := NewSession(sampleTree(t), "/data", nil, opts).Run()
	require.NoError(t, err)
	assert.Equal(t, t0, report.Summary.TimeBegin)
	assert.Equal(t, t0.Add(2*time.Second), report.Summary.TimeFinish)
	assert.Equal(t, 2*time.Second, report.Summary.TimeTaken)
}

func TestSession_ReportSurvivesJSONRoundTrip(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.Local)
	calls := 0
	opts := DefaultOptions()
	opts.Now = func() time.Time {
		calls++
		return t0.Add(time.Duration(calls-1) * 987654321)
	}

	report, err := NewSession(sampleTree(t), "/data", nil, opts).Run()
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var back model.Report
	require.NoError(t, json.Unmarshal(data, &back))

	orig := report.Summary
	assert.True(t, back.Summary.TimeBegin.Equal(orig.TimeBegin), "begin %v, want %v", back.Summary.TimeBegin, orig.TimeBegin)
	assert.True(t, back.Summary.TimeFinish.Equal(orig.TimeFinish), "finish %v, want %v", back.Summary.TimeFinish, orig.TimeFinish)
	assert.Equal(t, orig.TimeTaken, back.Summary.TimeTaken)
	assert.Equal(t, orig.TimeFinish.Sub(orig.TimeBegin), orig.TimeTaken)
	assert.Equal(t, orig.Categories, back.Summary.Categories)
	assert.Equal(t, report.Records, back.Records)
}

func TestSession_ClockSkewNeverNegative(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	calls := 0
	opts := DefaultOptions()
	opts.Now = func() time.Time {
		calls++
		if calls == 1 {
			return t0
		}
		return t0.Add(-time.Minute)
	}

	report, err := NewSession(sampleTree(t), "/data", nil, opts).Run()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), report.Summary.TimeTaken)
}

func TestSession_CanceledContext(t *testing.T) {
	s := NewSession(sampleTree(t), "/data", nil, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.RunContext(ctx)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, s.State())

	// A cancelled session can be run again from scratch.
	report, err = s.Run()
	require.NoError(t, err)
	assert.EqualValues(t, 5, report.Summary.FilesFound)
}

func TestSession_ProgressEndsWithDone(t *testing.T) {
	progress := make(chan Progress, 64)
	opts := DefaultOptions()
	opts.Progress = progress

	_, err := NewSession(sampleTree(t), "/data", nil, opts).Run()
	require.NoError(t, err)
	close(progress)

	var last Progress
	for p := range progress {
		last = p
	}
	assert.True(t, last.Done())
	assert.EqualValues(t, 5, last.FilesFound)
	assert.EqualValues(t, 5, last.FilesHashed)
	assert.InDelta(t, 1.0, last.HashedFraction(), 0.0001)
}

func TestSession_ProgressNeverBlocks(t *testing.T) {
	opts := DefaultOptions()
	opts.Progress = make(chan Progress) // unbuffered, never read

	done := make(chan error, 1)
	go func() {
		_, err := NewSession(sampleTree(t), "/data", nil, opts).Run()
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scan blocked on progress channel")
	}
}

func TestSession_VerboseLogsDiscovery(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		core, logs := observer.New(zapcore.InfoLevel)
		opts := DefaultOptions()
		opts.Verbose = verbose
		opts.Logger = zap.New(core)

		_, err := NewSession(sampleTree(t), "/data", nil, opts).Run()
		require.NoError(t, err)

		found := logs.FilterMessage("Found a file").Len()
		if verbose {
			assert.Equal(t, 5, found)
			assert.Equal(t, 4, logs.FilterMessage("Searching directory").Len())
		} else {
			assert.Zero(t, found)
		}
		assert.Equal(t, 1, logs.FilterMessage("Search started").Len())
		assert.Equal(t, 1, logs.FilterMessage("Search finished").Len())
	}
}

func TestBFSScanner_FreshSessionPerScan(t *testing.T) {
	sc := NewBFSScanner(sampleTree(t), model.DefaultTable())
	var _ Scanner = sc

	for i := 0; i < 2; i++ {
		report, err := sc.Scan(context.Background(), "/data", DefaultOptions())
		require.NoError(t, err)
		assert.EqualValues(t, 5, report.Summary.FilesFound)
	}
}
