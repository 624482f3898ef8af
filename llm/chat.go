package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const jsonOnlyInstruction = "\n\nRespond with JSON only, no markdown fences."

// chatBackend talks to any OpenAI-compatible /chat/completions endpoint. The request is sent
// by hand so a failure can carry the raw status and body.
type chatBackend struct {
	httpClient *http.Client
}

func (b *chatBackend) complete(ctx context.Context, cfg ProviderConfig, req Request) (Completion, error) {
	if err := cfg.Validate(); err != nil {
		return Completion{}, err
	}

	jsonData, err := json.Marshal(buildChatRequest(cfg, req))
	if err != nil {
		return Completion{}, fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.ChatCompletionsURL(), bytes.NewReader(jsonData))
	if err != nil {
		return Completion{}, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, &TransportError{Err: fmt.Errorf("error reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Completion{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return Completion{}, fmt.Errorf("error unmarshaling response: %w", err)
	}

	res := Completion{
		Usage: Usage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
		},
	}
	if len(chatResp.Choices) > 0 {
		res.Text = chatResp.Choices[0].Message.Content
	}
	return res, nil
}

func buildChatRequest(cfg ProviderConfig, req Request) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.Prompt.IsMultimodal() {
		user.MultiContent = toChatParts(req.Prompt.Parts())
	} else {
		user.Content = req.Prompt.Text()
		if req.WantsJSON() {
			user.Content += jsonOnlyInstruction
		}
	}
	messages = append(messages, user)

	chatReq := openai.ChatCompletionRequest{
		Model:       cfg.ModelName,
		Messages:    messages,
		Temperature: defaultTemperature,
	}
	if req.WantsJSON() {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return chatReq
}

func toChatParts(parts []Part) []openai.ChatMessagePart {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, part := range parts {
		if part.Image != nil {
			out = append(out, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: part.Image.DataURI()},
			})
			continue
		}
		out = append(out, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: part.Text,
		})
	}
	return out
}
