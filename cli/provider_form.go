package cli

import (
	"errors"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/santiagomed/quill/llm"
)

const customPreset = ""

// formValues is what the huh forms bind to. It lives on the heap so that copies of the
// bubbletea model keep writing to the same fields.
type formValues struct {
	opened   string
	provider string
	preset   string
	model    string
	baseURL  string
	apiKey   string

	confirmReset bool
}

func newFormValues(cfg llm.ProviderConfig) *formValues {
	return &formValues{
		opened:   string(cfg.Provider),
		provider: string(cfg.Provider),
		model:    cfg.ModelName,
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
	}
}

// config builds the provider configuration the user entered.
func (v *formValues) config() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:  llm.Provider(v.provider),
		ModelName: strings.TrimSpace(v.model),
		APIKey:    strings.TrimSpace(v.apiKey),
		BaseURL:   strings.TrimSpace(v.baseURL),
	}
}

// applyPreset fills model and base URL from the chosen preset, keeping the key. Switching
// provider drops the model and base URL of the one the form opened with.
func (v *formValues) applyPreset() {
	if v.provider != v.opened {
		v.baseURL = ""
		v.model = ""
		if v.provider == string(llm.ProviderGemini) {
			v.model = llm.DefaultGeminiModel
		}
	}
	if v.provider != string(llm.ProviderOpenAI) || v.preset == customPreset {
		return
	}
	p, ok := llm.FindPreset(v.preset)
	if !ok {
		return
	}
	cfg := p.Apply(v.config())
	v.model = cfg.ModelName
	v.baseURL = cfg.BaseURL
}

func buildProviderSelectForm(v *formValues, width int) *huh.Form {
	options := []huh.Option[string]{huh.NewOption("Custom endpoint", customPreset)}
	for _, p := range llm.Presets() {
		options = append(options, huh.NewOption(p.Name+"  "+p.BaseURL, p.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Description("Which backend drafts your document").
				Options(
					huh.NewOption("Gemini (structured output, images)", string(llm.ProviderGemini)),
					huh.NewOption("OpenAI-compatible chat endpoint", string(llm.ProviderOpenAI)),
				).
				Value(&v.provider),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Preset").
				Description("Fills in the base URL and model").
				Options(options...).
				Value(&v.preset),
		).WithHideFunc(func() bool { return v.provider != string(llm.ProviderOpenAI) }),
	).WithWidth(width)
}

func buildProviderDetailsForm(v *formValues, width int) *huh.Form {
	if v.provider == string(llm.ProviderGemini) {
		if v.model == "" {
			v.model = llm.DefaultGeminiModel
		}
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Model").
					Value(&v.model).
					Validate(validateRequired("Model")),
			),
		).WithWidth(width)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Description("/chat/completions is appended when missing").
				Placeholder("https://api.openai.com/v1").
				Value(&v.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Model").
				Value(&v.model).
				Validate(validateRequired("Model")),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&v.apiKey).
				Validate(validateRequired("API key")),
		),
	).WithWidth(width)
}

func buildResetForm(v *formValues, width int) *huh.Form {
	v.confirmReset = false
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Start over?").
				Description("Topic, outlines, chapters and drafts will be discarded.").
				Affirmative("Start over").
				Negative("Keep working").
				Value(&v.confirmReset),
		),
	).WithWidth(width)
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("base URL must be an http(s) URL")
	}
	return nil
}
