package statusui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the status panel. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Connectivity and polling states.
	Reachable   lipgloss.Color
	Unreachable lipgloss.Color
	Active      lipgloss.Color
	Idle        lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Log tail levels.
	LogWarn  lipgloss.Color
	LogError lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	Reachable:   lipgloss.Color("114"), // green
	Unreachable: lipgloss.Color("196"), // red
	Active:      lipgloss.Color("220"), // yellow/amber
	Idle:        lipgloss.Color("245"), // gray

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	LogWarn:  lipgloss.Color("208"), // orange
	LogError: lipgloss.Color("196"), // red
}
