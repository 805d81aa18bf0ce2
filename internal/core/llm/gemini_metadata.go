package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/paperstack-io/paperstack/internal/core"
	"github.com/paperstack-io/paperstack/internal/models"
)

// maxPromptChars bounds the text prefix sent to the model so long documents
// stay inside its context window.
const maxPromptChars = 12000

const systemPrompt = `You are a bibliographic metadata extractor. Given the text of an academic or professional document, reply with a single JSON object and nothing else:
{"title": string, "authors": [string], "keywords": [5-8 strings], "date": string, "journal": string, "abstract": string}
"date" is the document's creation or publication date at whatever precision the text supports (e.g. "2020", "2020-05" or "2020-05-14").
"journal" and "abstract" may be empty strings when the text does not state them. All other fields are required.`

type GeminiExtractor struct {
	client    *genai.Client
	modelName string
}

var _ core.MetadataProvider = (*GeminiExtractor)(nil)

func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiExtractor{client: cl, modelName: modelName}, nil
}

func (g *GeminiExtractor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// ExtractMetadata sends a bounded prefix of the document text to the model
// and parses its JSON reply. Overload and malformed-reply failures wrap
// core.ErrTransient so the caller's retry policy applies.
func (g *GeminiExtractor) ExtractMetadata(ctx context.Context, text string) (*models.DocumentMetadata, error) {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	m := g.client.GenerativeModel(g.modelName)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		if isOverloaded(err) {
			return nil, fmt.Errorf("%w: gemini generate: %v", core.ErrTransient, err)
		}
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty model reply", core.ErrTransient)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return parseReply(b.String())
}

// parseReply decodes the model's JSON reply, tolerating a markdown code
// fence around it. A reply missing any required field is malformed and
// reported as transient per the retry contract.
func parseReply(raw string) (*models.DocumentMetadata, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var md models.DocumentMetadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("%w: undecodable model reply: %v", core.ErrTransient, err)
	}
	if md.Title == "" || len(md.Authors) == 0 || len(md.Keywords) == 0 || md.Date == "" {
		return nil, fmt.Errorf("%w: model reply missing required fields", core.ErrTransient)
	}
	return &md, nil
}

// isOverloaded recognizes the model signalling overload or unavailability.
func isOverloaded(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusServiceUnavailable || gerr.Code == http.StatusTooManyRequests {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") || strings.Contains(msg, "unavailable")
}
