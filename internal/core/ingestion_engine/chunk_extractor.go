package ingestion_engine

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
)

var _ core.Chunker = (*HybridChunker)(nil)

// ChunkerConfig tunes the hybrid chunker.
//
// MaxTokens:  hard upper bound on tokens per chunk, counted by the tokenizer.
// MergePeers: merge adjacent undersized chunks while they fit in MaxTokens.
type ChunkerConfig struct {
	MaxTokens  int
	MergePeers bool
}

// HybridChunker splits documents along their structure first and token budget
// second. Markdown is cut at headings and paragraphs by the langchaingo markdown
// splitter; other text goes through the recursive character splitter. Pieces
// that are still too large are re-split, and small neighbours are merged back
// together when MergePeers is set.
type HybridChunker struct {
	tok core.Tokenizer
	cfg ChunkerConfig
}

func NewHybridChunker(tok core.Tokenizer, cfg ChunkerConfig) (*HybridChunker, error) {
	if tok == nil {
		return nil, fmt.Errorf("%w: chunker needs a tokenizer", core.ErrConfig)
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: chunker max tokens must be positive, got %d", core.ErrConfig, cfg.MaxTokens)
	}
	if rb, ok := tok.(runeBound); ok && cfg.MaxTokens < rb.MaxTokensPerRune() {
		return nil, fmt.Errorf("%w: chunker max tokens %d is below the %d tokens one rune can take with %s",
			core.ErrConfig, cfg.MaxTokens, rb.MaxTokensPerRune(), tok.Name())
	}
	return &HybridChunker{tok: tok, cfg: cfg}, nil
}

// Chunk splits the document and returns its chunks as a lazy sequence. The
// structural split happens up front so splitter errors surface here; budget
// enforcement and merging run while the sequence is consumed.
func (c *HybridChunker) Chunk(ctx context.Context, doc *models.Document) (iter.Seq[models.Chunk], error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", core.ErrFormat)
	}

	var (
		pieces []string
		err    error
	)
	if strings.TrimSpace(doc.Body) != "" {
		if doc.Format == FormatMarkdown {
			pieces, err = c.markdownSplitter().SplitText(doc.Body)
		} else {
			pieces, err = c.recursiveSplitter().SplitText(doc.Body)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: split %s: %v", core.ErrFormat, doc.Source.Name, err)
		}
	}

	return func(yield func(models.Chunk) bool) {
		var (
			pending string
			pos     int
		)

		emit := func(text string) bool {
			ch := models.Chunk{Position: pos, Text: text, TokenCount: c.tok.Count(text)}
			pos++
			return yield(ch)
		}

		for _, piece := range pieces {
			for _, part := range c.bound(piece) {
				if ctx.Err() != nil {
					return
				}
				if !c.cfg.MergePeers {
					if !emit(part) {
						return
					}
					continue
				}
				if pending == "" {
					pending = part
					continue
				}
				if merged := pending + "\n\n" + part; c.tok.Count(merged) <= c.cfg.MaxTokens {
					pending = merged
					continue
				}
				if !emit(pending) {
					return
				}
				pending = part
			}
		}
		if pending != "" {
			emit(pending)
		}
	}, nil
}

func (c *HybridChunker) markdownSplitter() textsplitter.TextSplitter {
	return textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(c.cfg.MaxTokens),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithLenFunc(c.tok.Count),
		textsplitter.WithCodeBlocks(true),
	)
}

func (c *HybridChunker) recursiveSplitter() textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.cfg.MaxTokens),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithLenFunc(c.tok.Count),
	)
}

// bound returns piece as one or more non-empty parts within the token budget.
func (c *HybridChunker) bound(piece string) []string {
	piece = strings.TrimSpace(piece)
	if piece == "" {
		return nil
	}
	if c.tok.Count(piece) <= c.cfg.MaxTokens {
		return []string{piece}
	}

	var out []string
	if parts, err := c.recursiveSplitter().SplitText(piece); err == nil && len(parts) > 1 {
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if c.tok.Count(p) <= c.cfg.MaxTokens {
				out = append(out, p)
			} else {
				out = append(out, c.packWords(p)...)
			}
		}
		return out
	}
	return c.packWords(piece)
}

// packWords greedily packs whitespace-separated words into parts within the
// budget. A single word over budget is cut by runes.
func (c *HybridChunker) packWords(text string) []string {
	var (
		out []string
		cur []string
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}

	for _, w := range strings.Fields(text) {
		if c.tok.Count(w) > c.cfg.MaxTokens {
			flush()
			out = append(out, c.packRunes(w)...)
			continue
		}
		if len(cur) > 0 && c.tok.Count(strings.Join(append(cur, w), " ")) > c.cfg.MaxTokens {
			flush()
		}
		cur = append(cur, w)
	}
	flush()
	return out
}

// packRunes cuts a word into rune runs within the budget. A single rune is never
// split, so a part can only exceed MaxTokens when one rune alone does;
// NewHybridChunker rejects such budgets for tokenizers that report their
// per-rune maximum.
func (c *HybridChunker) packRunes(word string) []string {
	var (
		out []string
		cur []rune
	)
	for _, r := range word {
		if len(cur) > 0 && c.tok.Count(string(append(cur, r))) > c.cfg.MaxTokens {
			out = append(out, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
