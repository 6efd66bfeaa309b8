package bubbletea

import (
	"github.com/usertbera/enveye"
	dv "github.com/usertbera/enveye/lipgloss"
)

// defaultStyles returns the styles used when no theme is configured.
func defaultStyles() enveye.Styles {
	return dv.DefaultTheme().Styles()
}

func defaultPalette() enveye.Palette {
	return dv.DefaultTheme().Palette()
}
