package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cadence/internal/conflict"
	"cadence/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// OutboxStatusPill returns a colored status indicator for an outbox entry.
func OutboxStatusPill(status domain.OutboxStatus) string {
	switch status {
	case domain.OutboxPending:
		return StyleBlue.Render("○ Pending")
	case domain.OutboxSent:
		return StyleGreen.Render("✔ Sent")
	case domain.OutboxFailed:
		return StyleRed.Render("✖ Failed")
	default:
		return StyleDim.Render(string(status))
	}
}

// EventStatusPill returns a colored status indicator for an event.
func EventStatusPill(status domain.EventStatus) string {
	switch status {
	case domain.EventPending:
		return StyleYellow.Render("○ Pending")
	case domain.EventConfirmed:
		return StyleGreen.Render("● Confirmed")
	case domain.EventDeclined:
		return StyleDim.Render("✖ Declined")
	case domain.EventCancelled:
		return StyleDim.Render("⊘ Cancelled")
	default:
		return StyleDim.Render(string(status))
	}
}

// SeverityIndicator returns a colored conflict severity string.
func SeverityIndicator(sev conflict.Severity) string {
	switch sev {
	case conflict.SeverityHigh:
		return StyleRed.Render("● HIGH")
	case conflict.SeverityMedium:
		return StyleYellow.Render("● MEDIUM")
	case conflict.SeverityLow:
		return StyleBlue.Render("● LOW")
	default:
		return StyleDim.Render("● NONE")
	}
}

// OkMark renders a success/failure marker for tool results.
func OkMark(ok bool) string {
	if ok {
		return StyleGreen.Render("✔")
	}
	return StyleRed.Render("✖")
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
