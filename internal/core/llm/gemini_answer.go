package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
)

// NoAnswer is returned verbatim when the passages do not cover the question.
const NoAnswer = "I cannot find this in the knowledge base."

const answerInstruction = "You answer questions about a document collection using only the numbered passages you are given. " +
	"Cite every passage you use with its number in square brackets, e.g. [2]. " +
	"If the passages do not contain the answer, reply exactly: " + NoAnswer

var citationRe = regexp.MustCompile(`\[(\d+)\]`)

// textGenerator is the single model call the answerer depends on.
type textGenerator interface {
	generate(ctx context.Context, system, prompt string) (string, error)
}

// GeminiAnswerer writes grounded, cited answers over retrieved records with a
// Gemini model.
type GeminiAnswerer struct {
	client *genai.Client
	gen    textGenerator
}

func NewGeminiAnswerer(ctx context.Context, apiKey, modelName string) (*GeminiAnswerer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", core.ErrConfig)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", core.ErrConfig, err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiAnswerer{client: cl, gen: &geminiModel{client: cl, name: modelName}}, nil
}

func (g *GeminiAnswerer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Answer prompts the model with the passages numbered from 1 and maps the
// bracketed numbers in its reply back to record IDs. With no passages the
// model is not called.
func (g *GeminiAnswerer) Answer(ctx context.Context, question string, passages []models.SearchResult) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", core.ErrFormat)
	}
	ans := &models.Answer{Citations: []string{}, Sources: passages}
	if len(passages) == 0 {
		ans.Text = NoAnswer
		return ans, nil
	}

	text, err := g.gen.generate(ctx, answerInstruction, answerPrompt(question, passages))
	if err != nil {
		return nil, err
	}
	ans.Text = strings.TrimSpace(text)
	if ans.Text == "" {
		ans.Text = NoAnswer
	}
	ans.Citations = citedIDs(ans.Text, passages)
	return ans, nil
}

func answerPrompt(question string, passages []models.SearchResult) string {
	var b strings.Builder
	b.WriteString("Passages:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d]", i+1)
		if src, ok := p.Metadata["source"].(string); ok && src != "" {
			fmt.Fprintf(&b, " (%s)", src)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(p.Text))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

// citedIDs returns the IDs of the passages referenced as [n], first mention
// first. Numbers outside the passage list are ignored.
func citedIDs(text string, passages []models.SearchResult) []string {
	out := []string{}
	seen := make(map[int]bool)
	for _, m := range citationRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(passages) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, passages[n-1].ID)
	}
	return out
}

type geminiModel struct {
	client *genai.Client
	name   string
}

func (m *geminiModel) generate(ctx context.Context, system, prompt string) (string, error) {
	gm := m.client.GenerativeModel(m.name)
	gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	gm.SetTemperature(0.2)

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

var _ core.AnswerGenerator = (*GeminiAnswerer)(nil)
