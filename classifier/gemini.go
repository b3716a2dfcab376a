package classifier

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini uses the Gemini API with a response schema, so the model is held to
// the exact JSON shape.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderGemini)
	}
	return &Gemini{client: client, model: model}, nil
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isTarget":   {Type: genai.TypeBoolean},
		"isIssue":    {Type: genai.TypeBoolean},
		"hasSpamUrl": {Type: genai.TypeBoolean},
	},
	Required: []string{"isTarget", "isIssue", "hasSpamUrl"},
}

var translationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"translatedText": {Type: genai.TypeString},
	},
	Required: []string{"translatedText"},
}

func schemaFor(kind responseKind) *genai.Schema {
	if kind == kindTranslation {
		return translationSchema
	}
	return analysisSchema
}

func (g *Gemini) completeJSON(ctx context.Context, prompt string, kind responseKind) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schemaFor(kind),
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: response had no content")
	}
	return text, nil
}
