package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/maruel/natural"

	"github.com/sadopc/arqrel/internal/model"
	"github.com/sadopc/arqrel/internal/ui/style"
	"github.com/sadopc/arqrel/internal/util"
)

// topExtCount is how many extensions are listed per category.
const topExtCount = 3

// CategoryStats holds aggregated stats for a file category.
type CategoryStats struct {
	Category  model.FileCategory
	FileCount int64
	// TotalSize and TopExts are only known when the report carries
	// per-file records.
	TotalSize uint64
	TopExts   []string
}

// AggregateCategories returns one entry per non-empty category, most
// files first. A nil table selects model.DefaultTable.
func AggregateCategories(report *model.Report, tbl *model.ExtensionTable) []CategoryStats {
	if report == nil {
		return nil
	}
	if tbl == nil {
		tbl = model.DefaultTable()
	}

	catMap := make(map[model.FileCategory]*CategoryStats)
	for _, cat := range model.AllCategories() {
		if n := report.Summary.Categories[cat]; n > 0 {
			catMap[cat] = &CategoryStats{Category: cat, FileCount: n}
		}
	}

	exts := make(map[model.FileCategory]map[string]int)
	for _, r := range report.Records {
		cat := tbl.Classify(r.Extension)
		st, ok := catMap[cat]
		if !ok {
			st = &CategoryStats{Category: cat}
			catMap[cat] = st
		}
		st.TotalSize += r.SizeBytes
		if exts[cat] == nil {
			exts[cat] = make(map[string]int)
		}
		exts[cat][r.Extension]++
	}

	result := make([]CategoryStats, 0, len(catMap))
	for cat, st := range catMap {
		st.TopExts = topExtensions(exts[cat], topExtCount)
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FileCount != result[j].FileCount {
			return result[i].FileCount > result[j].FileCount
		}
		return result[i].Category < result[j].Category
	})
	return result
}

func topExtensions(counts map[string]int, n int) []string {
	type extEntry struct {
		ext   string
		count int
	}
	entries := make([]extEntry, 0, len(counts))
	for ext, count := range counts {
		entries = append(entries, extEntry{ext, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return natural.Less(entries[i].ext, entries[j].ext)
	})

	var result []string
	for i := 0; i < n && i < len(entries); i++ {
		ext := "." + entries[i].ext
		if entries[i].ext == model.NoExtension {
			ext = "(none)"
		}
		result = append(result, fmt.Sprintf("%s (%d)", ext, entries[i].count))
	}
	return result
}

// RenderHeader renders the top line: title, base directory and totals.
func RenderHeader(theme style.Theme, summary model.ScanSummary, width int) string {
	if width < 10 {
		return ""
	}

	titleStyled := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render(" arqrel")

	stats := fmt.Sprintf("%s dirs  %s files  %s ",
		util.FormatCount(summary.DirectoriesFound),
		util.FormatCount(summary.FilesFound),
		util.FormatDuration(summary.TimeTaken),
	)
	statsStyled := lipgloss.NewStyle().Foreground(theme.TextMuted).Render(stats)

	titleW := lipgloss.Width(titleStyled)
	statsW := lipgloss.Width(statsStyled)

	// Path gets whatever space remains
	pathMaxW := width - titleW - statsW - 3
	pathStr := summary.BaseDir
	if pathMaxW > 5 {
		pathStr = util.TruncateString(pathStr, pathMaxW)
	} else {
		pathStr = ""
	}

	pathStyled := lipgloss.NewStyle().Foreground(theme.TextPrimary).Render("  " + pathStr)
	pathW := lipgloss.Width(pathStyled)

	gap := width - titleW - pathW - statsW
	if gap < 1 {
		gap = 1
	}

	line := titleStyled + pathStyled + strings.Repeat(" ", gap) + statsStyled
	return theme.HeaderStyle.Width(width).Render(line)
}

// RenderSummary renders the report summary: header, scan window and the
// per-category breakdown.
func RenderSummary(theme style.Theme, report *model.Report, tbl *model.ExtensionTable, width int) string {
	if report == nil {
		return ""
	}
	sum := report.Summary

	var b strings.Builder
	if header := RenderHeader(theme, sum, width); header != "" {
		b.WriteString(header)
		b.WriteString("\n")
	}

	muted := lipgloss.NewStyle().Foreground(theme.TextMuted)
	b.WriteString(muted.Render(fmt.Sprintf(" %s → %s",
		sum.TimeBegin.Format(model.SummaryTimeLayout),
		sum.TimeFinish.Format(model.SummaryTimeLayout))))
	b.WriteString("\n")

	stats := AggregateCategories(report, tbl)
	if len(stats) == 0 {
		b.WriteString(muted.Render("  (no files found)"))
		b.WriteString("\n")
		return b.String()
	}

	barW := width - 64
	if barW < 8 {
		barW = 8
	}
	if barW > 24 {
		barW = 24
	}

	haveRecords := len(report.Records) > 0
	total := sum.CategoryTotal()
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		pct := util.Percent(s.FileCount, total)
		color := lipgloss.Color(model.CategoryColor(s.Category))
		size := "-"
		if haveRecords {
			size = util.FormatSize(s.TotalSize)
		}
		rows = append(rows, []string{
			util.CategoryIcon(s.Category) + " " + model.CategoryName(s.Category),
			util.FormatCount(s.FileCount),
			fmt.Sprintf("%.1f%%", pct),
			theme.CategoryBar(barW, pct/100, color),
			size,
			strings.Join(s.TopExts, ", "),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorder).
		Headers("Category", "Files", "Share", "", "Size", "Extensions").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			s := lipgloss.NewStyle().Padding(0, 1).Foreground(theme.TextSecondary)
			switch col {
			case 0:
				if row >= 0 && row < len(stats) {
					return s.Bold(true).Foreground(lipgloss.Color(model.CategoryColor(stats[row].Category)))
				}
			case 1, 2, 4:
				return s.Align(lipgloss.Right)
			case 5:
				return s.Foreground(theme.TextMuted)
			}
			return s
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	if failed := countHashFailures(report.Records); failed > 0 {
		b.WriteString(theme.WarningText.Render(fmt.Sprintf(" %s file(s) could not be hashed", util.FormatCount(failed))))
		b.WriteString("\n")
	}
	return b.String()
}

func countHashFailures(records []model.FileRecord) int64 {
	var n int64
	for _, r := range records {
		if r.HashFailed() {
			n++
		}
	}
	return n
}
