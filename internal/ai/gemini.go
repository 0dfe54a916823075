package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiConfig configures the Gemini procedure writer.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini implements ProcedureWriter with the Google generative AI SDK.
type Gemini struct {
	apiKey string
	model  string
}

// NewGemini validates cfg. An empty key returns ErrDisabled.
func NewGemini(cfg GeminiConfig) (*Gemini, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrDisabled
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{apiKey: key, model: model}, nil
}

func (g *Gemini) Enabled() bool {
	return g != nil && g.apiKey != ""
}

// Procedure generates the procedure text, retrying transient failures.
func (g *Gemini) Procedure(ctx context.Context, section string) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.model)
	if m == nil {
		return "", errors.New("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0.2),
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, genai.Text(Prompt(section)))
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		txt := strings.TrimSpace(firstText(resp))
		if txt == "" {
			return "", errors.New("gemini: empty response")
		}
		return txt, nil
	}
	return "", fmt.Errorf("gemini generate: %w", lastErr)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
