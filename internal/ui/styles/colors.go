// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the reasonchat TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette is the set of colors a theme is built from.
type Palette struct {
	Name string

	Surface    lipgloss.Color
	SurfaceDim lipgloss.Color
	Overlay    lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	// Transcript tags
	User         lipgloss.Color
	Assistant    lipgloss.Color
	Error        lipgloss.Color
	Info         lipgloss.Color
	Thinking     lipgloss.Color
	Analyzing    lipgloss.Color
	Implementing lipgloss.Color

	Accent lipgloss.Color
}

// =============================================================================
// PALETTES
// =============================================================================

// DarkPalette is used by the "dark" theme.
var DarkPalette = Palette{
	Name:       "dark",
	Surface:    "#1E1E2E",
	SurfaceDim: "#181825",
	Overlay:    "#313244",

	TextPrimary:   "#CDD6F4",
	TextSecondary: "#A6ADC8",
	TextMuted:     "#6C7086",

	User:         "#60A5FA", // blue
	Assistant:    "#34D399", // green
	Error:        "#F87171", // red
	Info:         "#A6ADC8",
	Thinking:     "#C084FC", // purple
	Analyzing:    "#FB923C", // orange
	Implementing: "#D6A36F", // brown, lifted for dark backgrounds

	Accent: "#22D3EE",
}

// LightPalette is used by the "light" theme.
var LightPalette = Palette{
	Name:       "light",
	Surface:    "#FFFFFF",
	SurfaceDim: "#F5F5F5",
	Overlay:    "#E5E5E5",

	TextPrimary:   "#1F2937",
	TextSecondary: "#4B5563",
	TextMuted:     "#9CA3AF",

	User:         "#1D4ED8",
	Assistant:    "#047857",
	Error:        "#B91C1C",
	Info:         "#4B5563",
	Thinking:     "#7E22CE",
	Analyzing:    "#C2410C",
	Implementing: "#8B4513",

	Accent: "#0891B2",
}

// PaletteFor returns the palette for a theme name; unknown names are dark.
func PaletteFor(name string) Palette {
	if name == LightPalette.Name {
		return LightPalette
	}
	return DarkPalette
}
