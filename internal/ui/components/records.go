package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/sadopc/arqrel/internal/model"
	"github.com/sadopc/arqrel/internal/ui/style"
)

const shortHashLen = 12

// RenderRecords renders per-file records as a table. Paths are shortened
// from the left so the table fits width.
func RenderRecords(theme style.Theme, records []model.FileRecord, width int) string {
	if len(records) == 0 {
		return lipgloss.NewStyle().Foreground(theme.TextMuted).Render("  (no records)")
	}

	// name(24) + size(12) + perms(8) + mtime(21) + hash(14) + borders/padding
	pathW := width - 100
	if pathW < 16 {
		pathW = 16
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			ansi.Truncate(r.Name, 24, "…"),
			r.SizeFormatted,
			r.Permissions,
			r.LastModifyTime,
			shortHash(r.ContentHash),
			tailPath(r.AbsolutePath, pathW),
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorder).
		Headers("Name", "Size", "Mode", "Modified", "SHA-256", "Path").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			s := lipgloss.NewStyle().Padding(0, 1).Foreground(theme.TextSecondary)
			switch col {
			case 1:
				return s.Align(lipgloss.Right)
			case 4:
				if row >= 0 && row < len(records) && records[row].HashFailed() {
					return s.Foreground(theme.Error)
				}
				return s.Foreground(theme.TextMuted)
			case 5:
				return s.Foreground(theme.Accent)
			}
			return s
		}).
		Render()
}

func shortHash(h string) string {
	if len(h) <= shortHashLen {
		return h
	}
	return h[:shortHashLen]
}
