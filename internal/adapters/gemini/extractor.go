package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/shoplist-app/shoplist-api/internal/ports/out/productextractor"
)

const DefaultModel = "gemini-1.5-flash"

const promptTemplate = `Wypisz produkty spożywcze i artykuły do kupienia wymienione w poniższym tekście.
Odpowiedz wyłącznie obiektem JSON w formacie {"products": ["nazwa", ...]}.
Używaj krótkich nazw w mianowniku, bez ilości i jednostek. Jeśli nie ma produktów, zwróć pustą listę.

Tekst:
%s`

// TextGenerator is the single LLM capability the extractor needs.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Extractor implements productextractor.Extractor on top of a Gemini model.
type Extractor struct {
	gen TextGenerator
}

var _ productextractor.Extractor = (*Extractor)(nil)

func NewExtractor(gen TextGenerator) *Extractor {
	return &Extractor{gen: gen}
}

func (e *Extractor) ExtractProducts(ctx context.Context, text string) ([]string, error) {
	out, err := e.gen.GenerateContent(ctx, fmt.Sprintf(promptTemplate, text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", productextractor.ErrUnavailable, err)
	}
	names, err := parseProducts(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", productextractor.ErrUnavailable, err)
	}
	return names, nil
}

// parseProducts accepts {"products": [...]} with products as strings or {"name": ...}
// objects, optionally wrapped in a markdown code fence.
func parseProducts(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	var payload struct {
		Products []json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	if payload.Products == nil {
		return nil, errors.New("model output has no products field")
	}

	out := make([]string, 0, len(payload.Products))
	for _, p := range payload.Products {
		var name string
		if err := json.Unmarshal(p, &name); err == nil {
			out = append(out, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(p, &obj); err == nil && obj.Name != "" {
			out = append(out, obj.Name)
		}
	}
	return out, nil
}

// Client adapts a genai model to TextGenerator.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"
	return &Client{client: client, model: model}, nil
}

func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content generated")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("generated content is not text")
	}
	return b.String(), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
