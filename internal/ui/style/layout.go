package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	minBoxWidth = 24
	maxBoxWidth = 72

	// border(2) + horizontal padding(4)
	boxChrome = 6
	// label column of a progress line
	labelWidth = 9
)

// Layout manages the arrangement of UI components within terminal dimensions.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// BoxWidth returns the outer width of the progress box.
func (l Layout) BoxWidth() int {
	w := l.Width - 4
	if w < minBoxWidth {
		w = minBoxWidth
	}
	if w > maxBoxWidth {
		w = maxBoxWidth
	}
	return w
}

// InnerWidth returns the usable text width inside the progress box.
func (l Layout) InnerWidth() int {
	return l.BoxWidth() - boxChrome
}

// BarWidth returns the width of the hashing progress bar, leaving room
// for the percentage column.
func (l Layout) BarWidth() int {
	bar := l.InnerWidth() - 8
	if bar < 5 {
		bar = 5
	}
	return bar
}

// ValueWidth returns the width left for a value after its label.
func (l Layout) ValueWidth() int {
	w := l.InnerWidth() - labelWidth
	if w < 4 {
		w = 4
	}
	return w
}

// Center places content in the middle of the terminal.
func (l Layout) Center(content string) string {
	if l.Width <= 0 || l.Height <= 0 {
		return content
	}
	return lipgloss.Place(l.Width, l.Height, lipgloss.Center, lipgloss.Center, content)
}

// FullWidth pads a string with spaces to reach exactly the target visual width.
// If the string is already wider, it is returned as-is (no truncation).
func FullWidth(s string, width int) string {
	visLen := lipgloss.Width(s)
	if visLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visLen)
}
