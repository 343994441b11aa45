package llm

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"ccbot/internal/aiconfig"
	"ccbot/internal/constants"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

// buildRequest returns the endpoint, headers and JSON body for one completion
// in the wire format of cfg.Provider.
func buildRequest(cfg aiconfig.Config, prompt, content string) (string, map[string]string, map[string]interface{}, error) {
	endpoint := cfg.Endpoint
	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + cfg.APIKey,
	}
	var body map[string]interface{}

	switch cfg.Provider {
	case constants.ProviderClaude:
		headers["x-api-key"] = cfg.APIKey
		headers["anthropic-version"] = constants.AnthropicVersion
		body = map[string]interface{}{
			"model":      cfg.Model,
			"messages":   []chatMessage{{Role: "user", Content: joinPrompt(prompt, content)}},
			"max_tokens": constants.DefaultMaxTokens,
		}
	case constants.ProviderGemini:
		delete(headers, "Authorization")
		u, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return "", nil, nil, fmt.Errorf("invalid gemini endpoint: %w", err)
		}
		q := u.Query()
		q.Set("key", cfg.APIKey)
		u.RawQuery = q.Encode()
		endpoint = u.String()
		body = map[string]interface{}{
			"contents": []geminiContent{{
				Role:  "user",
				Parts: []geminiPart{{Text: joinPrompt(prompt, content)}},
			}},
		}
	default:
		body = map[string]interface{}{
			"model": cfg.Model,
			"messages": []chatMessage{
				{Role: "system", Content: prompt},
				{Role: "user", Content: content},
			},
			"max_tokens": constants.DefaultMaxTokens,
		}
	}

	if cfg.Provider == constants.ProviderCustom {
		for k, v := range cfg.CustomParams {
			body[k] = v
		}
		for k, v := range cfg.CustomHeaders {
			headers[k] = v
		}
	}

	return endpoint, headers, body, nil
}

func joinPrompt(prompt, content string) string {
	return prompt + "\n\n---\n\n" + content
}

// extractText pulls the completion text out of a provider response.
func extractText(cfg aiconfig.Config, data interface{}) string {
	var path string
	switch {
	case cfg.Provider == constants.ProviderClaude:
		path = "content.0.text"
	case cfg.Provider == constants.ProviderGemini:
		path = "candidates.0.content.parts.0.text"
	case cfg.Provider == constants.ProviderCustom && cfg.ResponsePath != "":
		path = cfg.ResponsePath
	default:
		path = "choices.0.message.content"
	}

	v := lookupPath(data, path)
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// lookupPath walks a dot-separated path through decoded JSON. Numeric
// segments index arrays.
func lookupPath(data interface{}, path string) interface{} {
	if path == "" {
		return data
	}
	cur := data
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[seg]
			if !ok {
				return nil
			}
			cur = next
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}
