package llm

import (
	"fmt"
	"strings"
)

// Provider selects which backend a call is dispatched to.
type Provider string

const (
	// ProviderGemini is the structured provider: native JSON schema and multimodal input.
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is any OpenAI-compatible chat-completion endpoint.
	ProviderOpenAI Provider = "openai"
)

const (
	DefaultGeminiModel  = "gemini-2.5-flash"
	chatCompletionsPath = "/chat/completions"
)

// ProviderConfig describes which backend to talk to and with what credentials.
// APIKey and BaseURL only matter for ProviderOpenAI.
type ProviderConfig struct {
	Provider  Provider `json:"provider"`
	ModelName string   `json:"model"`
	APIKey    string   `json:"api_key,omitempty"`
	BaseURL   string   `json:"base_url,omitempty"`
}

// DefaultProviderConfig returns the configuration a fresh session starts with.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Provider:  ProviderGemini,
		ModelName: DefaultGeminiModel,
	}
}

// ChatCompletionsURL normalizes BaseURL so it ends in /chat/completions.
func (c ProviderConfig) ChatCompletionsURL() string {
	u := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if strings.Contains(u, chatCompletionsPath) {
		return u
	}
	return u + chatCompletionsPath
}

// Validate reports configuration errors without touching the network.
// Fields irrelevant to the selected provider are not checked.
func (c ProviderConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		return nil
	case ProviderOpenAI:
		if strings.TrimSpace(c.APIKey) == "" {
			return ErrMissingAPIKey
		}
		if strings.TrimSpace(c.BaseURL) == "" {
			return ErrMissingBaseURL
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
}

// String renders the config for logs with the key masked.
func (c ProviderConfig) String() string {
	if c.Provider == ProviderOpenAI {
		return fmt.Sprintf("%s/%s @ %s", c.Provider, c.ModelName, c.ChatCompletionsURL())
	}
	return fmt.Sprintf("%s/%s", c.Provider, c.ModelName)
}

// Preset is a quick-fill entry for a known OpenAI-compatible endpoint.
type Preset struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

var presets = []Preset{
	{Name: "OpenAI", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
	{Name: "DeepSeek", BaseURL: "https://api.deepseek.com", Model: "deepseek-chat"},
	{Name: "Groq", BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.3-70b-versatile"},
	{Name: "OpenRouter", BaseURL: "https://openrouter.ai/api/v1", Model: "openai/gpt-4o-mini"},
	{Name: "Moonshot", BaseURL: "https://api.moonshot.cn/v1", Model: "moonshot-v1-8k"},
	{Name: "Qwen (DashScope)", BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", Model: "qwen-plus"},
	{Name: "SiliconFlow", BaseURL: "https://api.siliconflow.cn/v1", Model: "deepseek-ai/DeepSeek-V3"},
	{Name: "Ollama (local)", BaseURL: "http://localhost:11434/v1", Model: "llama3.1"},
}

// Presets returns a copy of the static preset list.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// FindPreset looks a preset up by name, case-insensitively.
func FindPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// Apply fills a generic provider config from the preset, keeping the caller's API key.
func (p Preset) Apply(current ProviderConfig) ProviderConfig {
	return ProviderConfig{
		Provider:  ProviderOpenAI,
		ModelName: p.Model,
		APIKey:    current.APIKey,
		BaseURL:   p.BaseURL,
	}
}
