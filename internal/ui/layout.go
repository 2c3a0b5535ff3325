package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/theme"
)

// Tab is one entry of the header tab strip.
type Tab struct {
	Label string
	// Badge is shown next to the label when positive.
	Badge int
}

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// BadgeText formats an unread counter, capping the display at 99+.
func BadgeText(n int) string {
	if n > 99 {
		return "99+"
	}
	return fmt.Sprintf("%d", n)
}

// RenderHeader renders the title, the tab strip and a right-aligned status.
func (l Layout) RenderHeader(title string, tabs []Tab, active int, status string) string {
	parts := []string{theme.HeaderStyle.Render(title)}
	for i, t := range tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Label)
		style := theme.TabStyle
		if i == active {
			style = theme.ActiveTabStyle
		}
		rendered := style.Render(label)
		if t.Badge > 0 {
			rendered += theme.BadgeStyle.Render(BadgeText(t.Badge))
		}
		parts = append(parts, rendered)
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	right := theme.DimmedStyle.Render(status)

	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.StatusBarStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		lipgloss.NewStyle().Height(l.ContentHeight()).Render(content),
		statusBar,
	)
}
