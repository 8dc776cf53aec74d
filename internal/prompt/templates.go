package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ragline/orchestrator/internal/modes"
)

// TemplateID names a generation template.
type TemplateID string

const (
	TemplateCombined      TemplateID = "combined"
	TemplateKnowledgeOnly TemplateID = "knowledge_only"
	TemplateWebOnly       TemplateID = "web_only"
	TemplateBaseKnowledge TemplateID = "base_knowledge"
)

// SelectTemplate maps an operating mode to its generation template.
func SelectTemplate(m modes.Mode) TemplateID {
	switch m {
	case modes.ModeHybrid:
		return TemplateCombined
	case modes.ModeKnowledgeOnly:
		return TemplateKnowledgeOnly
	case modes.ModeWebOnly:
		return TemplateWebOnly
	default:
		return TemplateBaseKnowledge
	}
}

// Placeholders substituted during rendering.
const (
	placeholderContext = "{context}"
	placeholderQuery   = "{query}"
	placeholderHistory = "{history}"
)

var builtins = map[TemplateID]string{
	TemplateCombined: `You are an assistant answering from knowledge-base documents and web search results.

## Retrieved Context
{context}

## Guidelines
- Answer from the provided context; integrate knowledge-base and web sources.
- Cite the source of each claim (document name or URL).
- If the context is insufficient, say so plainly.
{history}
## Question
{query}

## Answer`,

	TemplateKnowledgeOnly: `You are a document assistant answering strictly from knowledge-base content.

## Knowledge Base Context
{context}

## Guidelines
- Answer only from the documents above and name the document you cite.
- If the documents do not cover the question, say so plainly.
{history}
## Question
{query}

## Answer`,

	TemplateWebOnly: `You are a research assistant answering from current web search results.

## Web Search Context
{context}

## Guidelines
- Answer from the search results above and cite URLs.
- Note the retrieval date when freshness matters.
{history}
## Question
{query}

## Answer`,

	TemplateBaseKnowledge: `No relevant knowledge-base documents or web search results were found for this question. Answer from your own training knowledge, state clearly that no sourced evidence was retrieved, and note that the information may be out of date.
{history}
## Question
{query}

## Answer`,
}

// Catalog holds the generation templates. Built-ins can be overridden per
// template id from a YAML file, mirroring how operators tune prompts without
// a rebuild.
type Catalog struct {
	templates map[TemplateID]string
}

// NewCatalog returns a catalog with the built-in templates.
func NewCatalog() *Catalog {
	t := make(map[TemplateID]string, len(builtins))
	for id, s := range builtins {
		t[id] = s
	}
	return &Catalog{templates: t}
}

// LoadOverrides merges template overrides from a YAML file of the shape
// `template_id: template text`. Unknown ids are added as-is.
func (c *Catalog) LoadOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template overrides: %w", err)
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return fmt.Errorf("parse template overrides: %w", err)
	}
	for id, s := range overrides {
		if strings.TrimSpace(s) == "" {
			continue
		}
		c.templates[TemplateID(id)] = s
	}
	return nil
}

// RenderInput carries the variables a template can reference.
type RenderInput struct {
	Context string
	Query   string
	History []string // most recent first; rendered oldest first
}

// Render substitutes the input into the named template.
func (c *Catalog) Render(id TemplateID, in RenderInput) (string, error) {
	tmpl, ok := c.templates[id]
	if !ok {
		return "", fmt.Errorf("unknown template %q", id)
	}
	ctx := in.Context
	if ctx == "" {
		ctx = "(no retrieved context)"
	}
	out := strings.ReplaceAll(tmpl, placeholderContext, ctx)
	out = strings.ReplaceAll(out, placeholderQuery, in.Query)
	out = strings.ReplaceAll(out, placeholderHistory, renderHistory(in.History))
	return out, nil
}

func renderHistory(history []string) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n## Recent Conversation\n")
	for i := len(history) - 1; i >= 0; i-- {
		b.WriteString("- ")
		b.WriteString(history[i])
		b.WriteString("\n")
	}
	return b.String()
}
