package runner

import "github.com/charmbracelet/lipgloss"

// CACT のブランドカラー（紫とパステル）に合わせた配色なのだ
var (
	purple = lipgloss.Color("#9333EA")
	pink   = lipgloss.Color("#EC4899")
	muted  = lipgloss.Color("#6B7280")
	red    = lipgloss.Color("#E53935")
	amber  = lipgloss.Color("#FFC107")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(purple)
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(muted)
	valueStyle    = lipgloss.NewStyle().Bold(true)
	chipStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(purple).Padding(0, 1)
	progressStyle = lipgloss.NewStyle().Foreground(muted)
	errorStyle    = lipgloss.NewStyle().Foreground(red)
	warnStyle     = lipgloss.NewStyle().Foreground(amber)
	emphStyle     = lipgloss.NewStyle().Bold(true).Foreground(pink)
	boxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 2)
)
