package tui

import "github.com/charmbracelet/lipgloss"

// StatusKind indicates severity for status bar messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

func (k StatusKind) style() lipgloss.Style {
	switch k {
	case StatusSuccess:
		return StatusSuccessStyle
	case StatusWarn:
		return StatusWarnStyle
	case StatusError:
		return StatusErrorStyle
	default:
		return StatusInfoStyle
	}
}

// prefix marks errors so they stand out without color.
func (k StatusKind) prefix() string {
	if k == StatusError {
		return "✗ "
	}
	return ""
}
