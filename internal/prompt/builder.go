package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ragline/orchestrator/internal/evidence"
)

const blockSeparator = "\n\n"

// BuildContext renders evidence into a bounded textual context. Each item
// becomes one source-tagged block; blocks are joined in evidence order.
// When the rendered size would exceed budget (a character budget), blocks
// are dropped lowest-relevance first, ties broken by dropping the
// later-appended block. A sole surviving oversized block is hard-truncated
// on a rune boundary.
//
// The function is deterministic: the same evidence sequence and budget
// always produce byte-identical output.
func BuildContext(items []evidence.Item, budget int) string {
	if budget <= 0 || len(items) == 0 {
		return ""
	}

	type block struct {
		text  string
		score float64
		order int
	}
	blocks := make([]block, 0, len(items))
	for i, it := range items {
		blocks = append(blocks, block{text: renderBlock(it), score: it.Score(), order: i})
	}

	total := func() int {
		n := 0
		for _, b := range blocks {
			n += len(b.text)
		}
		if len(blocks) > 1 {
			n += len(blockSeparator) * (len(blocks) - 1)
		}
		return n
	}

	for total() > budget && len(blocks) > 1 {
		drop := 0
		for i := 1; i < len(blocks); i++ {
			if blocks[i].score < blocks[drop].score ||
				(blocks[i].score == blocks[drop].score && blocks[i].order > blocks[drop].order) {
				drop = i
			}
		}
		blocks = append(blocks[:drop], blocks[drop+1:]...)
	}

	if len(blocks) == 1 && len(blocks[0].text) > budget {
		cut := budget
		for cut > 0 && !utf8.RuneStart(blocks[0].text[cut]) {
			cut--
		}
		blocks[0].text = blocks[0].text[:cut]
	}

	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.text
	}
	return strings.Join(parts, blockSeparator)
}

func renderBlock(it evidence.Item) string {
	switch it.Source {
	case evidence.SourceWeb:
		title := it.Provenance[evidence.TitleKey]
		if title == "" {
			title = "Untitled"
		}
		if url := it.Provenance[evidence.URLKey]; url != "" {
			return fmt.Sprintf("Web: %s [%s]\n%s", title, url, it.Content)
		}
		return fmt.Sprintf("Web: %s\n%s", title, it.Content)
	default:
		name := it.Provenance[evidence.FileNameKey]
		if name == "" {
			name = it.SourceID()
		}
		if name == "" {
			name = "Unknown"
		}
		if page := it.Provenance[evidence.PageKey]; page != "" {
			return fmt.Sprintf("Knowledge Base: %s (p.%s)\n%s", name, page, it.Content)
		}
		return fmt.Sprintf("Knowledge Base: %s\n%s", name, it.Content)
	}
}
