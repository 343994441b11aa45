// Package aiconfig manages the LLM provider settings that administrators edit
// from chat. The settings live in the key-value store as one JSON document so
// the bot and the AI worker read the same values.
package aiconfig

import (
	"encoding/json"
	"fmt"
	"strings"

	"ccbot/internal/constants"
)

type Config struct {
	Provider      string                 `json:"provider"`
	Model         string                 `json:"model"`
	Endpoint      string                 `json:"endpoint"`
	APIKey        string                 `json:"apiKey"`
	Enabled       bool                   `json:"enabled"`
	CustomReply   bool                   `json:"customReply"`
	CustomParams  map[string]interface{} `json:"customParams,omitempty"`
	CustomHeaders map[string]string      `json:"customHeaders,omitempty"`
	ResponsePath  string                 `json:"responsePath,omitempty"`
}

// Defaults is what an empty store yields.
func Defaults() Config {
	return Config{
		Provider:    constants.ProviderOpenAI,
		Model:       "gpt-3.5-turbo",
		Endpoint:    "https://api.openai.com/v1/chat/completions",
		Enabled:     false,
		CustomReply: true,
	}
}

// Ready reports whether the provider can be called.
func (c Config) Ready() bool {
	return c.Enabled && c.APIKey != ""
}

// Field names accepted by /aiset, in display order.
const (
	FieldProvider      = "provider"
	FieldModel         = "model"
	FieldEndpoint      = "endpoint"
	FieldAPIKey        = "apiKey"
	FieldEnabled       = "enabled"
	FieldCustomReply   = "customReply"
	FieldCustomParams  = "customParams"
	FieldCustomHeaders = "customHeaders"
	FieldResponsePath  = "responsePath"
)

var fieldOrder = []string{
	FieldProvider, FieldModel, FieldEndpoint, FieldAPIKey, FieldEnabled,
	FieldCustomReply, FieldCustomParams, FieldCustomHeaders, FieldResponsePath,
}

// CanonicalField resolves a user-typed field name case-insensitively.
func CanonicalField(name string) (string, bool) {
	for _, f := range fieldOrder {
		if strings.EqualFold(f, name) {
			return f, true
		}
	}
	return "", false
}

// Fields lists the settable field names.
func Fields() []string {
	return append([]string(nil), fieldOrder...)
}

// Mask replaces every character of a secret with '*'.
func Mask(secret string) string {
	return strings.Repeat("*", len([]rune(secret)))
}

// Format renders the configuration one "field: value" per line, with the API
// key masked and values JSON-encoded.
func Format(c Config) string {
	lines := make([]string, 0, len(fieldOrder))
	for _, f := range fieldOrder {
		var v interface{}
		switch f {
		case FieldProvider:
			v = c.Provider
		case FieldModel:
			v = c.Model
		case FieldEndpoint:
			v = c.Endpoint
		case FieldAPIKey:
			if c.APIKey != "" {
				lines = append(lines, fmt.Sprintf("%s: %s", f, Mask(c.APIKey)))
				continue
			}
			v = c.APIKey
		case FieldEnabled:
			v = c.Enabled
		case FieldCustomReply:
			v = c.CustomReply
		case FieldCustomParams:
			if len(c.CustomParams) == 0 {
				continue
			}
			v = c.CustomParams
		case FieldCustomHeaders:
			if len(c.CustomHeaders) == 0 {
				continue
			}
			v = c.CustomHeaders
		case FieldResponsePath:
			if c.ResponsePath == "" {
				continue
			}
			v = c.ResponsePath
		}
		lines = append(lines, fmt.Sprintf("%s: %s", f, encode(v)))
	}
	return strings.Join(lines, "\n")
}

func encode(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
