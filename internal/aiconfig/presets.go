package aiconfig

import (
	"strings"

	"ccbot/internal/constants"
)

type Preset struct {
	Name        string
	Description string
	Provider    string
	Model       string
	Endpoint    string
}

var presets = []Preset{
	{
		Name:        constants.ProviderOpenAI,
		Description: "OpenAI GPT models",
		Provider:    constants.ProviderOpenAI,
		Model:       "gpt-3.5-turbo",
		Endpoint:    "https://api.openai.com/v1/chat/completions",
	},
	{
		Name:        constants.ProviderClaude,
		Description: "Anthropic Claude models",
		Provider:    constants.ProviderClaude,
		Model:       "claude-3-haiku-20240307",
		Endpoint:    "https://api.anthropic.com/v1/messages",
	},
	{
		Name:        constants.ProviderGemini,
		Description: "Google Gemini models",
		Provider:    constants.ProviderGemini,
		Model:       "gemini-pro",
		Endpoint:    "https://generativelanguage.googleapis.com/v1/models/gemini-pro:generateContent",
	},
	{
		Name:        constants.ProviderOpenAICompatible,
		Description: "OpenAI-compatible API (edit the endpoint afterwards)",
		Provider:    constants.ProviderOpenAICompatible,
		Model:       "gpt-3.5-turbo",
		Endpoint:    "https://api.example.com/v1/chat/completions",
	},
	{
		Name:        constants.ProviderDeepSeek,
		Description: "DeepSeek models",
		Provider:    constants.ProviderDeepSeek,
		Model:       "deepseek-chat",
		Endpoint:    "https://api.deepseek.com/v1/chat/completions",
	},
}

// PresetDisable is the pseudo-preset that turns the provider off.
const PresetDisable = "disable"

func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

func Presets() []Preset {
	return append([]Preset(nil), presets...)
}
