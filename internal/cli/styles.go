package cli

import "github.com/charmbracelet/lipgloss"

var (
	accentColor  = lipgloss.Color("#4ECDC4")
	incomeColor  = lipgloss.Color("#27AE60")
	expenseColor = lipgloss.Color("#FF6B6B")
	warningColor = lipgloss.Color("#FFE66D")
	subtleColor  = lipgloss.Color("#666666")

	// TitleStyle is used for view titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	HeaderStyle = lipgloss.NewStyle().Bold(true)

	InfoStyle    = lipgloss.NewStyle().Italic(true).Foreground(subtleColor)
	SuccessStyle = lipgloss.NewStyle().Foreground(incomeColor)
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(expenseColor)

	// BarStyle fills spending bars; ProgressStyle fills the savings bar.
	BarStyle      = lipgloss.NewStyle().Foreground(accentColor)
	ProgressStyle = lipgloss.NewStyle().Foreground(incomeColor)
	TrackStyle    = lipgloss.NewStyle().Foreground(subtleColor)
)

const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "!"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an informational placeholder.
func FormatInfo(message string) string {
	return InfoStyle.Render(message)
}
