package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ViewFingerprint renders the sender's public-key fingerprint display block.
func ViewFingerprint(fingerprint string) string {
	return lipgloss.JoinVertical(lipgloss.Center,
		"Signing with public key (copied to clipboard): ",
		FingerprintBoxStyle.Render(fingerprint),
	)
}

// ViewProgress renders a simple progress bar.
func ViewProgress(percent float64, width int) string {
	barWidth := width - 10
	filled := int(float64(barWidth) * percent)
	empty := barWidth - filled

	// Clamp values
	if filled < 0 {
		filled = 0
	}
	if empty < 0 {
		empty = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return fmt.Sprintf("%s %3.0f%%", bar, percent*100)
}
