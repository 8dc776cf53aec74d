package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/orchestrator/internal/modes"
)

func TestSelectTemplate(t *testing.T) {
	cases := map[modes.Mode]TemplateID{
		modes.ModeHybrid:        TemplateCombined,
		modes.ModeKnowledgeOnly: TemplateKnowledgeOnly,
		modes.ModeWebOnly:       TemplateWebOnly,
		modes.ModeFallback:      TemplateBaseKnowledge,
	}
	for mode, want := range cases {
		assert.Equal(t, want, SelectTemplate(mode), "mode %s", mode)
	}
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	c := NewCatalog()
	out, err := c.Render(TemplateCombined, RenderInput{
		Context: "CTX-BLOCK",
		Query:   "what oil does the engine take?",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "CTX-BLOCK")
	assert.Contains(t, out, "what oil does the engine take?")
	assert.NotContains(t, out, "{context}")
	assert.NotContains(t, out, "{query}")
	assert.NotContains(t, out, "{history}")
}

func TestRenderFallbackCarriesDisclaimer(t *testing.T) {
	c := NewCatalog()
	out, err := c.Render(TemplateBaseKnowledge, RenderInput{Query: "q"})
	require.NoError(t, err)
	assert.Contains(t, out, "No relevant knowledge-base documents or web search results were found")
}

func TestRenderHistoryOldestFirst(t *testing.T) {
	c := NewCatalog()
	out, err := c.Render(TemplateWebOnly, RenderInput{
		Context: "ctx",
		Query:   "q",
		History: []string{"newest turn", "older turn"},
	})
	require.NoError(t, err)
	older := indexOf(t, out, "older turn")
	newest := indexOf(t, out, "newest turn")
	assert.Less(t, older, newest)
}

func TestRenderUnknownTemplate(t *testing.T) {
	c := NewCatalog()
	_, err := c.Render(TemplateID("nope"), RenderInput{})
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("web_only: \"OVERRIDE {query}\"\n"), 0o644))

	c := NewCatalog()
	require.NoError(t, c.LoadOverrides(path))
	out, err := c.Render(TemplateWebOnly, RenderInput{Query: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "OVERRIDE hello", out)

	// Other templates untouched.
	out, err = c.Render(TemplateCombined, RenderInput{Query: "x", Context: "y"})
	require.NoError(t, err)
	assert.Contains(t, out, "Retrieved Context")
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	i := strings.Index(s, sub)
	require.GreaterOrEqual(t, i, 0, "%q not found", sub)
	return i
}
