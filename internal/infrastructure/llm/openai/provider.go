package openai

import (
	"strings"

	"github.com/rotisserie/eris"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	deepSeekBaseURL   = "https://api.deepseek.com"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

var providerBaseURLs = map[string]string{
	"openai":     openAIBaseURL,
	"deepseek":   deepSeekBaseURL,
	"openrouter": openRouterBaseURL,
}

// Target identifies the endpoint and provider-local model name for a configured model.
type Target struct {
	Provider string
	BaseURL  string
	Model    string
}

// ResolveModel maps a provider-prefixed model name such as "openai/gpt-4o-mini" or
// "deepseek/deepseek-chat" onto its API endpoint. An explicit endpoint always wins and
// keeps the full model name, which is how OpenRouter-style gateways address models.
// Unknown prefixes are treated as part of the model name and routed to OpenRouter.
func ResolveModel(name, endpoint string) (Target, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Target{}, eris.New("model name is required")
	}

	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" {
		return Target{Provider: "custom", BaseURL: endpoint, Model: trimmed}, nil
	}

	prefix, rest, found := strings.Cut(trimmed, "/")
	if !found {
		return Target{Provider: "openrouter", BaseURL: openRouterBaseURL, Model: trimmed}, nil
	}

	provider := strings.ToLower(prefix)
	baseURL, known := providerBaseURLs[provider]
	if !known {
		return Target{Provider: "openrouter", BaseURL: openRouterBaseURL, Model: trimmed}, nil
	}

	if strings.TrimSpace(rest) == "" {
		return Target{}, eris.Errorf("model name missing after provider prefix: %s", trimmed)
	}

	return Target{Provider: provider, BaseURL: baseURL, Model: rest}, nil
}
