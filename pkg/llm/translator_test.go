package llm

import (
	"fmt"
	"testing"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(TranslationRequest{
		Question: "How many orders per status?",
		Table:    "orders",
		Columns:  []models.Column{{Name: "id", Type: "integer"}, {Name: "status", Type: "text"}},
		Memory: []models.Message{
			{Role: models.RoleUser, Content: "show revenue"},
			{Role: models.RoleAssistant, Content: "query_used: SELECT 1"},
		},
	})

	assert.Contains(t, prompt, "table name `orders`")
	assert.Contains(t, prompt, "[id (integer), status (text)]")
	assert.Contains(t, prompt, "[user: show revenue; assistant: query_used: SELECT 1]")
	assert.Contains(t, prompt, "'How many orders per status?'")
	assert.Contains(t, prompt, "only SELECT")
	assert.Contains(t, prompt, "LIMIT 500")
}

func TestBuildPrompt_KeepsLastFiveMessages(t *testing.T) {
	t.Parallel()

	memory := make([]models.Message, 0, 8)
	for i := range 8 {
		memory = append(memory, models.Message{Role: models.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	prompt := BuildPrompt(TranslationRequest{Question: "q", Memory: memory})

	assert.NotContains(t, prompt, "user: m2;")
	assert.Contains(t, prompt, "[user: m3; user: m4; user: m5; user: m6; user: m7]")
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	text, err := extractText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("SELECT status "), genai.Text("FROM orders")}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT status FROM orders", text)

	_, err = extractText(&genai.GenerateContentResponse{})
	require.ErrorIs(t, err, ErrEmptyResponse)

	_, err = extractText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewGeminiTranslator_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGeminiTranslator(t.Context(), "", "gemini-2.5-flash")
	require.Error(t, err)
}
