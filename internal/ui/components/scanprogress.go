package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/sadopc/arqrel/internal/scanner"
	"github.com/sadopc/arqrel/internal/ui/style"
	"github.com/sadopc/arqrel/internal/util"
)

// RenderScanProgress renders the scanning progress box. spin is the
// current spinner frame and may be empty.
func RenderScanProgress(theme style.Theme, layout style.Layout, spin, root string, progress scanner.Progress) string {
	valueW := layout.ValueWidth()
	stat := func(label, value string) string {
		return theme.StatLabel.Render(label) + theme.StatValue.Render(value)
	}

	var lines []string

	title := "Inventorying"
	if progress.Phase == scanner.PhaseHashing {
		title = "Hashing"
	}
	if spin != "" {
		title = spin + " " + title
	}
	lines = append(lines, theme.Title.Render(title))
	lines = append(lines, theme.StatLabel.Render("Root")+theme.PathText.Render(ansi.Truncate(root, valueW, "…")))
	lines = append(lines, "")

	lines = append(lines, stat("Dirs", util.FormatCount(progress.DirsFound)))
	lines = append(lines, stat("Files", util.FormatCount(progress.FilesFound)))

	if progress.Phase == scanner.PhaseWalking {
		lines = append(lines, stat("Speed", util.FormatCount(int64(progress.ItemsPerSecond()))+" items/s"))
	} else {
		lines = append(lines, stat("Hashed", fmt.Sprintf("%s / %s",
			util.FormatCount(progress.FilesHashed), util.FormatCount(progress.FilesFound))))
		lines = append(lines, stat("Size", util.FormatSize(uint64(max(progress.BytesHashed, 0)))))
		ratio := progress.HashedFraction()
		lines = append(lines, theme.BarGradient(layout.BarWidth(), ratio)+
			theme.PercentText.Render(fmt.Sprintf("%.1f%%", ratio*100)))
	}

	if progress.Errors > 0 {
		lines = append(lines, theme.StatLabel.Render("Errors")+theme.ErrorText.Render(util.FormatCount(progress.Errors)))
	}

	if progress.CurrentPath != "" {
		lines = append(lines, theme.StatLabel.Render("Current")+
			lipgloss.NewStyle().Foreground(theme.TextMuted).Render(tailPath(progress.CurrentPath, valueW)))
	}

	lines = append(lines, "")
	lines = append(lines, stat("Elapsed", fmt.Sprintf("%.1fs", progress.Duration.Seconds())))

	return theme.ModalStyle.
		Width(layout.BoxWidth() - 2).
		Render(strings.Join(lines, "\n"))
}

// tailPath keeps the end of p, which is the part that changes between
// updates.
func tailPath(p string, width int) string {
	w := ansi.StringWidth(p)
	if w <= width {
		return p
	}
	return ansi.TruncateLeft(p, w-width+1, "…")
}
