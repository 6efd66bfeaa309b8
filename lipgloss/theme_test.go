package lipgloss_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usertbera/enveye"
	"github.com/usertbera/enveye/lipgloss"
)

func TestDefaultTheme(t *testing.T) {
	t.Parallel()

	t.Run("implements Theme interface", func(t *testing.T) {
		t.Parallel()

		var _ enveye.Theme = lipgloss.DefaultTheme()
	})

	t.Run("colors every change kind", func(t *testing.T) {
		t.Parallel()

		styles := lipgloss.DefaultTheme().Styles()

		for _, k := range []enveye.Kind{enveye.KindChanged, enveye.KindAdded, enveye.KindRemoved, enveye.KindCritical} {
			assert.NotEmpty(t, styles.StyleFor(k).Foreground, k.String())
		}
	})

	t.Run("returns same styles as DarkTheme", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, lipgloss.DarkTheme().Styles(), lipgloss.DefaultTheme().Styles())
		assert.Equal(t, lipgloss.DarkTheme().Palette(), lipgloss.DefaultTheme().Palette())
	})
}

func TestThemes_KindColors(t *testing.T) {
	t.Parallel()

	for _, theme := range []*lipgloss.Theme{lipgloss.DarkTheme(), lipgloss.LightTheme()} {
		p := theme.Palette()
		s := theme.Styles()

		assert.Equal(t, string(p.Changed), s.Changed.Foreground, "changed rows use the palette yellow")
		assert.Equal(t, string(p.Added), s.Added.Foreground, "added rows use the palette green")
		assert.Equal(t, string(p.Removed), s.Removed.Foreground, "removed rows use the palette red")
		assert.Equal(t, p.Removed, p.Critical, "critical shares the removal red")
		assert.NotEqual(t, s.Changed.Foreground, s.Added.Foreground)
		assert.NotEqual(t, s.Added.Foreground, s.Removed.Foreground)
	}
}

func TestLightTheme(t *testing.T) {
	t.Parallel()

	t.Run("implements Theme interface", func(t *testing.T) {
		t.Parallel()

		var _ enveye.Theme = lipgloss.LightTheme()
	})

	t.Run("returns styles optimized for light backgrounds", func(t *testing.T) {
		t.Parallel()

		dark := lipgloss.DarkTheme()
		light := lipgloss.LightTheme()

		assert.NotEqual(t, dark.Palette().Background, light.Palette().Background)
		assert.NotEqual(t, dark.Styles().Added.Background, light.Styles().Added.Background)
	})
}

func TestThemeByName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want *lipgloss.Theme
	}{
		{"", lipgloss.DarkTheme()},
		{"dark", lipgloss.DarkTheme()},
		{"light", lipgloss.LightTheme()},
	}
	for _, tt := range tests {
		theme, err := lipgloss.ThemeByName(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want.Palette(), theme.Palette())
	}

	_, err := lipgloss.ThemeByName("solarized")
	assert.ErrorContains(t, err, "unknown theme")
}
