package ingestion_engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/markdave123-py/docingest/internal/core"
)

// WhitespaceTokenizer is the name of the offline tokenizer that counts
// whitespace-separated words.
const WhitespaceTokenizer = "whitespace"

const fallbackEncoding = "cl100k_base"

var (
	_ core.Tokenizer = (*wordTokenizer)(nil)
	_ core.Tokenizer = (*tiktokenTokenizer)(nil)
	_ runeBound      = (*wordTokenizer)(nil)
	_ runeBound      = (*tiktokenTokenizer)(nil)
)

var useOfflineBPE sync.Once

// runeBound is implemented by tokenizers that know the most tokens a single
// rune can encode to. The chunker refuses budgets below it.
type runeBound interface {
	MaxTokensPerRune() int
}

// NewTokenizer resolves a tokenizer identifier. Tiktoken encoding and model
// names map onto their encoding; any other identifier (a Hugging Face model
// id, say) is approximated with cl100k_base. BPE ranks are read from the
// embedded offline loader, never fetched.
func NewTokenizer(id string) (core.Tokenizer, error) {
	if id == "" || id == WhitespaceTokenizer {
		return wordTokenizer{}, nil
	}
	useOfflineBPE.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	if enc, err := tiktoken.GetEncoding(id); err == nil {
		return &tiktokenTokenizer{name: id, enc: enc}, nil
	}
	if enc, err := tiktoken.EncodingForModel(id); err == nil {
		return &tiktokenTokenizer{name: id, enc: enc}, nil
	}

	enc, err := tiktoken.GetEncoding(fallbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", fallbackEncoding, err)
	}
	slog.Default().With("component", "tokenizer").Warn("no tiktoken encoding for tokenizer, approximating",
		"tokenizer", id, "encoding", fallbackEncoding)
	return &tiktokenTokenizer{name: id, enc: enc}, nil
}

type wordTokenizer struct{}

func (wordTokenizer) Name() string { return WhitespaceTokenizer }

func (wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }

func (wordTokenizer) MaxTokensPerRune() int { return 1 }

type tiktokenTokenizer struct {
	name string
	enc  *tiktoken.Tiktoken
}

func (t *tiktokenTokenizer) Name() string { return t.name }

func (t *tiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// MaxTokensPerRune is the byte-level worst case: a rune that matches no merge
// encodes to one token per UTF-8 byte.
func (t *tiktokenTokenizer) MaxTokensPerRune() int { return utf8.UTFMax }
