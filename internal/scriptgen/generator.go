// Package scriptgen turns player prompts into game scripts with Gemini.
package scriptgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// ErrEmptyResponse is returned when the model produced no usable text,
// typically because every candidate was safety-filtered.
var ErrEmptyResponse = errors.New("model returned no text candidates")

// Generator produces a game script from a player prompt.
type Generator interface {
	GenerateScript(ctx context.Context, prompt string) (string, error)
}

// Gemini implements Generator on top of the Google generative AI API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGemini creates a generator using the given API key and model name.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create generative client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	return &Gemini{client: client, model: model, name: modelName}, nil
}

// GenerateScript asks the model for a game script.
func (g *Gemini) GenerateScript(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	script := ResponseText(resp)
	if script == "" {
		return "", ErrEmptyResponse
	}

	log.Debug().
		Str("model", g.name).
		Int("prompt_len", len(prompt)).
		Int("script_len", len(script)).
		Msg("game script generated")
	return script, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
