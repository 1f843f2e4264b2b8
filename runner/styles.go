package runner

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the terminal UI.
type Styles struct {
	Bold     lipgloss.Style
	Dim      lipgloss.Style
	Muted    lipgloss.Style
	Path     lipgloss.Style
	TestName lipgloss.Style

	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Skip    lipgloss.Style
	Error   lipgloss.Style
	Running lipgloss.Style

	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	SymbolPass string
	SymbolFail string
	SymbolSkip string
}

// DefaultStyles returns the standard color scheme.
func DefaultStyles() *Styles {
	green := lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}
	red := lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	yellow := lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"}
	magenta := lipgloss.AdaptiveColor{Light: "#8250df", Dark: "#bc8cff"}
	blue := lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}
	gray := lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#8b949e"}
	faint := lipgloss.AdaptiveColor{Light: "#afb8c1", Dark: "#484f58"}

	return &Styles{
		Bold:     lipgloss.NewStyle().Bold(true),
		Dim:      lipgloss.NewStyle().Foreground(faint),
		Muted:    lipgloss.NewStyle().Foreground(gray),
		Path:     lipgloss.NewStyle().Foreground(gray).Underline(true),
		TestName: lipgloss.NewStyle(),

		Pass:    lipgloss.NewStyle().Foreground(green),
		Fail:    lipgloss.NewStyle().Foreground(red).Bold(true),
		Skip:    lipgloss.NewStyle().Foreground(yellow),
		Error:   lipgloss.NewStyle().Foreground(magenta),
		Running: lipgloss.NewStyle().Foreground(blue),

		ProgressFilled: lipgloss.NewStyle().Foreground(green),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(faint),

		SymbolPass: "✓",
		SymbolFail: "✗",
		SymbolSkip: "○",
	}
}

// SpinnerFrames returns the frames of the running-test spinner.
func SpinnerFrames() []string {
	return []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
}

// ProgressChars returns the filled and empty progress bar characters.
func ProgressChars() (string, string) {
	return "█", "░"
}
