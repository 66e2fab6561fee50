// Package llm turns natural-language questions into SQL with a hosted model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// MemoryWindow is the number of recent memory messages included in a prompt.
const MemoryWindow = 5

var ErrEmptyResponse = errors.New("empty model response")

// TranslationRequest carries everything the prompt is built from.
type TranslationRequest struct {
	Question string
	Table    string
	Columns  []models.Column
	Memory   []models.Message
}

// Translator returns the raw model text for a request. Callers extract and
// validate the SQL themselves.
type Translator interface {
	Name() string
	Translate(ctx context.Context, request TranslationRequest) (string, error)
}

// GeminiTranslator implements Translator for Google Gemini.
type GeminiTranslator struct {
	client *genai.Client
	model  string
}

// NewGeminiTranslator creates a client for model using apiKey.
func NewGeminiTranslator(ctx context.Context, apiKey, model string) (*GeminiTranslator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiTranslator{client: client, model: model}, nil
}

func (g *GeminiTranslator) Name() string {
	return "gemini"
}

func (g *GeminiTranslator) Translate(ctx context.Context, request TranslationRequest) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.Text(BuildPrompt(request)))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractText(resp)
}

// Close releases resources held by the client.
func (g *GeminiTranslator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}

	return nil
}

// BuildPrompt renders the instruction sent to the model.
func BuildPrompt(request TranslationRequest) string {
	columns := make([]string, 0, len(request.Columns))
	for _, column := range request.Columns {
		columns = append(columns, fmt.Sprintf("%s (%s)", column.Name, column.Type))
	}

	memory := request.Memory
	if len(memory) > MemoryWindow {
		memory = memory[len(memory)-MemoryWindow:]
	}

	recent := make([]string, 0, len(memory))
	for _, message := range memory {
		recent = append(recent, fmt.Sprintf("%s: %s", message.Role, message.Content))
	}

	var b strings.Builder

	fmt.Fprintf(&b, "You are a senior data SQL assistant. Given a table name `%s` and its columns [%s], ",
		request.Table, strings.Join(columns, ", "))
	fmt.Fprintf(&b, "and considering recent context/preferences [%s], ", strings.Join(recent, "; "))
	fmt.Fprintf(&b, "write a single safe SELECT query that best answers the question: '%s'. ", request.Question)
	b.WriteString("Rules: only SELECT; no CTE unless needed; avoid DDL/DML; prefer GROUP BY or ORDER BY as appropriate; ")
	b.WriteString("if aggregating categories use COUNT(*) and return top categories; always include LIMIT 500 or fewer. ")
	b.WriteString("Return only the SQL without explanations or backticks.")

	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no content", ErrEmptyResponse)
	}

	var parts []string

	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no text parts", ErrEmptyResponse)
	}

	return strings.Join(parts, ""), nil
}
