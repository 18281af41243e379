package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID, Name, State, Error, Attribution string
	Enabled                             bool
}

func TestLayerList(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("layer-list", []item{
		{ID: "roads", Name: "Roads", State: "loaded", Enabled: true},
		{ID: "parks", Name: "Parks & Rec", State: "registered", Error: "load failed"},
	})
	require.NoError(t, err)
	assert.Contains(t, html, `<li id="layer-roads" class="layer_item layer_loaded">`)
	assert.Contains(t, html, " checked")
	assert.Contains(t, html, "Parks &amp; Rec")
	assert.Contains(t, html, `<span class="layer_error">load failed</span>`)
}

func TestDictAndMustRender(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Panics(t, func() { r.MustRender("no-such-template", nil) })

	dict := funcMap["dict"].(func(...any) map[string]any)
	assert.Equal(t, map[string]any{"X": 1}, dict("X", 1))
	assert.Nil(t, dict("odd"))
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte(`{{define "hello"}}hi {{.}}{{end}}`), 0644))

	r, err := NewFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "hi bob", r.MustRender("hello", "bob"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte(`{{define "hello"}}bye {{.}}{{end}}`), 0644))
	require.NoError(t, r.Reload(dir))
	assert.Equal(t, "bye bob", r.MustRender("hello", "bob"))
}
