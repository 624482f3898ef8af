package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// contentGenerator is the slice of the genai Models service the structured backend uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type generatorFactory func(ctx context.Context, apiKey string) (contentGenerator, error)

func newGenAIGenerator(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client.Models, nil
}

type geminiBackend struct {
	apiKey  string
	factory generatorFactory

	mu  sync.RWMutex
	gen contentGenerator
}

func (b *geminiBackend) generator(ctx context.Context) (contentGenerator, error) {
	b.mu.RLock()
	if b.gen != nil {
		defer b.mu.RUnlock()
		return b.gen, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != nil {
		return b.gen, nil
	}
	gen, err := b.factory(ctx, b.apiKey)
	if err != nil {
		return nil, err
	}
	b.gen = gen
	return gen, nil
}

func (b *geminiBackend) complete(ctx context.Context, cfg ProviderConfig, req Request) (Completion, error) {
	gen, err := b.generator(ctx)
	if err != nil {
		return Completion{}, err
	}

	parts, err := toGenAIParts(req.Prompt)
	if err != nil {
		return Completion{}, err
	}

	temperature := defaultTemperature
	config := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.WantsJSON() {
		config.ResponseMIMEType = MIMETypeJSON
		if req.Schema != nil {
			config.ResponseSchema = toGenAISchema(req.Schema)
		}
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := gen.GenerateContent(ctx, cfg.ModelName, contents, config)
	if err != nil {
		return Completion{}, fmt.Errorf("gemini generate content: %w", err)
	}

	res := Completion{Text: responseText(resp)}
	if resp != nil && resp.UsageMetadata != nil {
		res.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return res, nil
}

func toGenAIParts(p Prompt) ([]*genai.Part, error) {
	var parts []*genai.Part
	for _, part := range p.Parts() {
		if part.Image == nil {
			parts = append(parts, &genai.Part{Text: part.Text})
			continue
		}
		data, err := part.Image.Bytes()
		if err != nil {
			return nil, fmt.Errorf("error decoding inline image: %w", err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: part.Image.MIMEType, Data: data}})
	}
	return parts, nil
}

func toGenAISchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		MinItems:    s.MinItems,
		MaxItems:    s.MaxItems,
		Items:       toGenAISchema(s.Items),
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeString:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenAISchema(prop)
		}
	}
	return out
}

// responseText joins the text parts of the first candidate, skipping thoughts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
