package popup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers(t *testing.T) {
	assert.Equal(t, "3", Helpers["float0"](3.14159))
	assert.Equal(t, "3.14", Helpers["float2"](3.14159))
	assert.Equal(t, "3.1416", Helpers["float4"](3.14159))
	assert.Equal(t, "42%", Helpers["percentage0"](42.2))
	assert.Equal(t, "42.20%", Helpers["percentage2"](42.2))
	assert.Equal(t, "$1200", Helpers["dollars0"](1200.4))
	assert.Equal(t, "$1200.40", Helpers["dollars2"]("1200.4"))
	assert.Equal(t, "NaN", Helpers["float2"]("n/a"))
}

func TestCompile_RendersFeatureWithHelpers(t *testing.T) {
	render, err := Compile(`<b>{{properties.name}}</b> {{dollars2 properties.income}}`)
	require.NoError(t, err)

	out := render(map[string]any{
		"type":       "Feature",
		"properties": map[string]any{"name": "Tract 7", "income": 51234.5},
	})
	assert.Equal(t, "<b>Tract 7</b> $51234.50", out)
}

func TestCompile_NotLoadedSentinelRendersVerbatim(t *testing.T) {
	render, err := Compile(NotLoaded)
	require.NoError(t, err)
	assert.Equal(t, NotLoaded, render(nil))
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile("{{#if}}")
	assert.Error(t, err)
}
