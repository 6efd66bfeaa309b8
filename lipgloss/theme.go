// Package lipgloss provides theme implementations using the Lipgloss styling library.
package lipgloss

import (
	"fmt"

	"github.com/usertbera/enveye"
)

// Compile-time interface verification.
var _ enveye.Theme = (*Theme)(nil)

// Theme implements enveye.Theme with Lipgloss-compatible colors.
type Theme struct {
	styles  enveye.Styles
	palette enveye.Palette
}

// Styles returns the color styles for this theme.
func (t *Theme) Styles() enveye.Styles {
	return t.styles
}

// Palette returns the semantic color palette for this theme.
func (t *Theme) Palette() enveye.Palette {
	return t.palette
}

// Theme names accepted by ThemeByName.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// ThemeByName returns the named theme. An empty name selects the default.
func ThemeByName(name string) (*Theme, error) {
	switch name {
	case "", ThemeDark:
		return DarkTheme(), nil
	case ThemeLight:
		return LightTheme(), nil
	default:
		return nil, fmt.Errorf("unknown theme %q (want %s or %s)", name, ThemeDark, ThemeLight)
	}
}

// DefaultTheme returns the default theme (dark background optimized).
func DefaultTheme() *Theme {
	return DarkTheme()
}

// DarkTheme returns a theme optimized for dark terminal backgrounds.
// Changed rows are yellow, added green, removed and critical red.
func DarkTheme() *Theme {
	return &Theme{
		styles: enveye.Styles{
			Changed: enveye.ColorPair{
				Foreground: "#f9e2af", // Yellow
				Background: "#3a3000", // Very dark yellow
			},
			Added: enveye.ColorPair{
				Foreground: "#a6e3a1", // Green
				Background: "#004000", // Very dark green
			},
			Removed: enveye.ColorPair{
				Foreground: "#f38ba8", // Red
				Background: "#3f0001", // Very dark red
			},
			Critical: enveye.ColorPair{
				Foreground: "#1e1e2e",
				Background: "#f38ba8", // Inverted red
			},
			ChangedHighlight: enveye.ColorPair{
				Foreground: "#1e1e2e", // Dark text on bright background
				Background: "#f9e2af",
			},
			Absent: enveye.ColorPair{
				Foreground: "#6c7086", // Muted gray
			},
			TableHeader: enveye.ColorPair{
				Foreground: "#89b4fa", // Blue
				Background: "#313244",
			},
			Title: enveye.ColorPair{
				Foreground: "#cba6f7", // Mauve
			},
			Explanation: enveye.ColorPair{
				Foreground: "#cdd6f4",
			},
			Failure: enveye.ColorPair{
				Foreground: "#f38ba8",
			},
			StatusBar: enveye.ColorPair{
				Foreground: "#a6adc8",
				Background: "#313244",
			},
		},
		palette: enveye.Palette{
			// Base colors (Catppuccin Mocha)
			Background: "#1e1e2e",
			Foreground: "#cdd6f4",

			Changed:  "#f9e2af",
			Added:    "#a6e3a1",
			Removed:  "#f38ba8",
			Critical: "#f38ba8",

			// JSON syntax colors
			Key:         "#89b4fa",
			String:      "#a6e3a1",
			Number:      "#fab387",
			Keyword:     "#cba6f7",
			Punctuation: "#9399b2",

			UIBackground: "#313244",
			UIForeground: "#a6adc8",
			UIAccent:     "#89b4fa",
		},
	}
}

// LightTheme returns a theme optimized for light terminal backgrounds.
func LightTheme() *Theme {
	return &Theme{
		styles: enveye.Styles{
			Changed: enveye.ColorPair{
				Foreground: "#df8e1d", // Yellow
				Background: "#f7ecd0",
			},
			Added: enveye.ColorPair{
				Foreground: "#40a02b", // Green
				Background: "#d4f4d4",
			},
			Removed: enveye.ColorPair{
				Foreground: "#d20f39", // Red
				Background: "#f4d4d4",
			},
			Critical: enveye.ColorPair{
				Foreground: "#ffffff",
				Background: "#d20f39",
			},
			ChangedHighlight: enveye.ColorPair{
				Foreground: "#ffffff", // White text on dark background
				Background: "#df8e1d",
			},
			Absent: enveye.ColorPair{
				Foreground: "#9ca0b0",
			},
			TableHeader: enveye.ColorPair{
				Foreground: "#1e66f5",
				Background: "#e6e9ef",
			},
			Title: enveye.ColorPair{
				Foreground: "#8839ef",
			},
			Explanation: enveye.ColorPair{
				Foreground: "#4c4f69",
			},
			Failure: enveye.ColorPair{
				Foreground: "#d20f39",
			},
			StatusBar: enveye.ColorPair{
				Foreground: "#6c6f85",
				Background: "#e6e9ef",
			},
		},
		palette: enveye.Palette{
			// Base colors (Catppuccin Latte)
			Background: "#eff1f5",
			Foreground: "#4c4f69",

			Changed:  "#df8e1d",
			Added:    "#40a02b",
			Removed:  "#d20f39",
			Critical: "#d20f39",

			Key:         "#1e66f5",
			String:      "#40a02b",
			Number:      "#fe640b",
			Keyword:     "#8839ef",
			Punctuation: "#6c6f85",

			UIBackground: "#e6e9ef",
			UIForeground: "#6c6f85",
			UIAccent:     "#1e66f5",
		},
	}
}
