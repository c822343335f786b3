package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/sadopc/arqrel/internal/model"
	"github.com/sadopc/arqrel/internal/scanner"
	"github.com/sadopc/arqrel/internal/ui/style"
)

func sampleReport() *model.Report {
	begin := time.Date(2024, 7, 14, 9, 30, 5, 0, time.Local)
	cats := model.NewCategoryCounts()
	cats[model.CatSource] = 3
	cats[model.CatConfig] = 1
	cats[model.CatUnknown] = 1
	return &model.Report{
		Summary: model.ScanSummary{
			BaseDir:          "/srv/app",
			TimeBegin:        begin,
			TimeFinish:       begin.Add(250 * time.Millisecond),
			TimeTaken:        250 * time.Millisecond,
			DirectoriesFound: 2,
			FilesFound:       5,
			Categories:       cats,
		},
		Records: []model.FileRecord{
			{Name: "main.go", SizeBytes: 100, Extension: "go", ContentHash: strings.Repeat("a", 64), AbsolutePath: "/srv/app/main.go"},
			{Name: "util.go", SizeBytes: 50, Extension: "go", ContentHash: strings.Repeat("b", 64), AbsolutePath: "/srv/app/util.go"},
			{Name: "lib.py", SizeBytes: 10, Extension: "py", ContentHash: strings.Repeat("c", 64), AbsolutePath: "/srv/app/lib.py"},
			{Name: "app.yaml", SizeBytes: 7, Extension: "yaml", ContentHash: model.ErrorValue, AbsolutePath: "/srv/app/app.yaml"},
			{Name: "LICENSE", SizeBytes: 1, Extension: model.NoExtension, ContentHash: strings.Repeat("d", 64), AbsolutePath: "/srv/app/LICENSE"},
		},
	}
}

func TestAggregateCategories(t *testing.T) {
	stats := AggregateCategories(sampleReport(), nil)
	if len(stats) != 3 {
		t.Fatalf("expected 3 categories, got %d: %+v", len(stats), stats)
	}

	src := stats[0]
	if src.Category != model.CatSource || src.FileCount != 3 || src.TotalSize != 160 {
		t.Errorf("unexpected source stats: %+v", src)
	}
	if len(src.TopExts) != 2 || src.TopExts[0] != ".go (2)" || src.TopExts[1] != ".py (1)" {
		t.Errorf("unexpected top extensions: %v", src.TopExts)
	}

	// Ties on file count fall back to category order.
	if stats[1].Category != model.CatConfig || stats[2].Category != model.CatUnknown {
		t.Errorf("unexpected order: %v, %v", stats[1].Category, stats[2].Category)
	}
	if got := stats[2].TopExts; len(got) != 1 || got[0] != "(none) (1)" {
		t.Errorf("unexpected unknown extensions: %v", got)
	}
}

func TestAggregateCategories_SummaryOnly(t *testing.T) {
	r := sampleReport()
	r.Records = nil
	stats := AggregateCategories(r, nil)
	if len(stats) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(stats))
	}
	for _, s := range stats {
		if s.TotalSize != 0 || len(s.TopExts) != 0 {
			t.Errorf("summary-only stats should carry counts only: %+v", s)
		}
	}
	if AggregateCategories(nil, nil) != nil {
		t.Error("nil report should aggregate to nil")
	}
}

func TestTopExtensions_NaturalTieBreak(t *testing.T) {
	got := topExtensions(map[string]int{"mp10": 1, "mp3": 1, "mp4": 2, "avi": 1}, 3)
	want := []string{".mp4 (2)", ".avi (1)", ".mp3 (1)"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("topExtensions = %v, want %v", got, want)
	}
}

func TestRenderSummary(t *testing.T) {
	theme := style.DefaultTheme()
	out := ansi.Strip(RenderSummary(theme, sampleReport(), nil, 120))

	for _, want := range []string{"arqrel", "/srv/app", "Source code", "Config", "Unknown", "60.0%", ".go (2)", "160 bytes", "1 file(s) could not be hashed"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Fonts") {
		t.Error("empty categories should not be listed")
	}
}

func TestRenderSummary_NoFiles(t *testing.T) {
	r := &model.Report{Summary: model.ScanSummary{BaseDir: "/empty", Categories: model.NewCategoryCounts()}}
	out := ansi.Strip(RenderSummary(style.DefaultTheme(), r, nil, 80))
	if !strings.Contains(out, "(no files found)") {
		t.Errorf("expected empty marker, got:\n%s", out)
	}
	if RenderSummary(style.DefaultTheme(), nil, nil, 80) != "" {
		t.Error("nil report should render empty")
	}
}

func TestRenderHeader_SmallWidth(t *testing.T) {
	theme := style.DefaultTheme()
	sum := sampleReport().Summary
	for _, w := range []int{0, 1, 5, 12, 30} {
		t.Run("", func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("RenderHeader panicked at width=%d: %v", w, r)
				}
			}()
			out := RenderHeader(theme, sum, w)
			if w >= 10 && lipgloss.Width(out) > w {
				t.Errorf("header width %d exceeds %d", lipgloss.Width(out), w)
			}
		})
	}
}

func TestRenderRecords(t *testing.T) {
	theme := style.DefaultTheme()
	records := sampleReport().Records
	out := ansi.Strip(RenderRecords(theme, records, 80))

	if !strings.Contains(out, "main.go") || !strings.Contains(out, strings.Repeat("a", shortHashLen)) {
		t.Errorf("records table missing content:\n%s", out)
	}
	if strings.Contains(out, strings.Repeat("a", shortHashLen+1)) {
		t.Error("hash should be shortened")
	}
	if !strings.Contains(out, model.ErrorValue) {
		t.Error("hash failures should stay visible")
	}
	if got := ansi.Strip(RenderRecords(theme, nil, 80)); !strings.Contains(got, "(no records)") {
		t.Errorf("unexpected empty output %q", got)
	}
}

func TestTailPath(t *testing.T) {
	if got := tailPath("/a/b", 10); got != "/a/b" {
		t.Errorf("short path changed: %q", got)
	}
	got := tailPath("/very/long/path/to/file.txt", 10)
	if ansi.StringWidth(got) != 10 || !strings.HasSuffix(got, "file.txt") || !strings.HasPrefix(got, "…") {
		t.Errorf("tailPath = %q", got)
	}
}

func TestRenderScanProgress_SmallWidth(t *testing.T) {
	theme := style.DefaultTheme()
	p := scanner.Progress{
		Phase:       scanner.PhaseHashing,
		CurrentPath: "/a/really/long/path/that/will/not/fit/anywhere/at/all/file.bin",
		FilesFound:  10,
		FilesHashed: 4,
		Errors:      1,
	}
	for _, w := range []int{0, 1, 2, 5, 80} {
		t.Run("", func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("RenderScanProgress panicked at width=%d: %v", w, r)
				}
			}()
			layout := style.NewLayout(w, 10)
			out := RenderScanProgress(theme, layout, "", "/root", p)
			if got := lipgloss.Width(out); got > layout.BoxWidth() {
				t.Errorf("box width %d exceeds %d", got, layout.BoxWidth())
			}
		})
	}
}

func TestRenderScanProgress_Phases(t *testing.T) {
	theme := style.DefaultTheme()
	layout := style.NewLayout(80, 24)

	walking := ansi.Strip(RenderScanProgress(theme, layout, "*", "/srv", scanner.Progress{DirsFound: 3, FilesFound: 7}))
	if !strings.Contains(walking, "* Inventorying") || !strings.Contains(walking, "items/s") {
		t.Errorf("walking view:\n%s", walking)
	}
	if strings.Contains(walking, "Hashed") {
		t.Error("walking view should not show hashing stats")
	}

	hashing := ansi.Strip(RenderScanProgress(theme, layout, "", "/srv", scanner.Progress{
		Phase: scanner.PhaseHashing, FilesFound: 4, FilesHashed: 1,
	}))
	if !strings.Contains(hashing, "Hashing") || !strings.Contains(hashing, "1 / 4") || !strings.Contains(hashing, "25.0%") {
		t.Errorf("hashing view:\n%s", hashing)
	}
}
