package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme bundles the colors and styles used by the progress view and the
// report printouts.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	// Hashing bar endpoints
	GradientStart lipgloss.Color
	GradientEnd   lipgloss.Color

	HeaderStyle lipgloss.Style
	Title       lipgloss.Style
	StatLabel   lipgloss.Style
	StatValue   lipgloss.Style
	PathText    lipgloss.Style
	PercentText lipgloss.Style
	ErrorText   lipgloss.Style
	WarningText lipgloss.Style
	ModalStyle  lipgloss.Style
	TableHeader lipgloss.Style
	TableBorder lipgloss.Style
}

// DefaultTheme returns the dark theme.
func DefaultTheme() Theme {
	t := Theme{
		Primary:   lipgloss.Color("#2E86AB"),
		Secondary: lipgloss.Color("#3DDC97"),
		Accent:    lipgloss.Color("#61AFEF"),
		Error:     lipgloss.Color("#E06C75"),
		Warning:   lipgloss.Color("#E5C07B"),

		TextPrimary:   lipgloss.Color("#D8DEE9"),
		TextSecondary: lipgloss.Color("#AEB6C4"),
		TextMuted:     lipgloss.Color("#667085"),

		GradientStart: lipgloss.Color("#2E86AB"),
		GradientEnd:   lipgloss.Color("#3DDC97"),
	}

	t.HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary).Background(lipgloss.Color("#1F2430"))
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	t.StatLabel = lipgloss.NewStyle().Foreground(t.TextMuted).Width(labelWidth)
	t.StatValue = lipgloss.NewStyle().Foreground(t.TextSecondary)
	t.PathText = lipgloss.NewStyle().Foreground(t.Accent)
	t.PercentText = lipgloss.NewStyle().Foreground(t.TextMuted).Width(7).Align(lipgloss.Right)
	t.ErrorText = lipgloss.NewStyle().Foreground(t.Error)
	t.WarningText = lipgloss.NewStyle().Foreground(t.Warning).Bold(true)
	t.ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2)
	t.TableHeader = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary).Padding(0, 1)
	t.TableBorder = lipgloss.NewStyle().Foreground(t.TextMuted)
	return t
}

// GradientColor blends the gradient endpoints in Lab space.
func (t Theme) GradientColor(ratio float64) lipgloss.Color {
	switch {
	case ratio <= 0:
		return t.GradientStart
	case ratio >= 1:
		return t.GradientEnd
	}
	from, _ := colorful.Hex(string(t.GradientStart))
	to, _ := colorful.Hex(string(t.GradientEnd))
	return lipgloss.Color(from.BlendLab(to, ratio).Hex())
}

// BarGradient renders the hashing bar, coloring each filled cell along the
// gradient.
func (t Theme) BarGradient(width int, ratio float64) string {
	if width <= 0 {
		return ""
	}
	filled := fill(width, int(ratio*float64(width)))

	var b strings.Builder
	for i := 0; i < filled; i++ {
		pos := float64(i) / float64(max(width-1, 1))
		b.WriteString(lipgloss.NewStyle().Foreground(t.GradientColor(pos)).Render("━"))
	}
	if filled < width {
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(strings.Repeat("─", width-filled)))
	}
	return b.String()
}

// CategoryBar renders a solid bar in a single category color. Any non-zero
// share gets at least one cell.
func (t Theme) CategoryBar(width int, ratio float64, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	filled := fill(width, int(ratio*float64(width)+0.5))
	if ratio > 0 && filled == 0 {
		filled = 1
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(t.TextMuted).Render(strings.Repeat("·", width-filled))
}

func fill(width, n int) int {
	return min(max(n, 0), width)
}
