package openai

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainllm "spotlight/app/internal/domain/llm"
)

// ModelOptions configures the chat-completions backed model.
type ModelOptions struct {
	Client *Client
	Model  string
}

type model struct {
	client *Client
	logger *logrus.Logger
	name   string
}

var _ domainllm.Model = (*model)(nil)

// NewModel constructs a domainllm.Model backed by the chat completions API.
func NewModel(opts ModelOptions) (domainllm.Model, error) {
	if opts.Client == nil {
		return nil, eris.New("llm client is required")
	}

	name := strings.TrimSpace(opts.Model)
	if name == "" {
		return nil, eris.New("model name is required")
	}

	return &model{
		client: opts.Client,
		logger: opts.Client.Logger(),
		name:   name,
	}, nil
}

func (m *model) Generate(ctx context.Context, req domainllm.GenerationRequest) (domainllm.GenerationResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return domainllm.GenerationResponse{}, eris.New("prompt is required")
	}

	fields := logrus.Fields{
		"model":          m.name,
		"base_url":       m.client.BaseURL(),
		"max_new_tokens": req.MaxNewTokens,
		"temperature":    req.Temperature,
	}
	m.logDebug(fields, "starting chat completion")
	start := time.Now()

	completion, err := m.client.chat.New(ctx, buildParams(m.name, req))
	if err != nil {
		m.logError(fields, err, "requesting chat completion")
		return domainllm.GenerationResponse{}, eris.Wrap(err, "requesting chat completion")
	}

	if len(completion.Choices) == 0 {
		err := eris.New("llm completion returned no choices")
		m.logError(fields, err, "processing chat completion")
		return domainllm.GenerationResponse{}, err
	}

	choice := completion.Choices[0]
	if reason := strings.TrimSpace(choice.FinishReason); strings.EqualFold(reason, "content_filter") {
		err := eris.New("llm blocked the request via content filter")
		m.logError(fields, err, "generation blocked")
		return domainllm.GenerationResponse{}, err
	}

	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		err := eris.Errorf("llm refused to generate content: %s", refusal)
		m.logError(fields, err, "generation refused")
		return domainllm.GenerationResponse{}, err
	}

	response := domainllm.GenerationResponse{
		OutputText:   choice.Message.Content,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
	}

	fields["input_tokens"] = response.InputTokens
	fields["output_tokens"] = response.OutputTokens
	fields["finish_reason"] = choice.FinishReason
	fields["duration_ms"] = float64(time.Since(start).Microseconds()) / 1000
	m.logDebug(fields, "finished chat completion")

	return response, nil
}

func (m *model) GenerateAsync(ctx context.Context, req domainllm.GenerationRequest) <-chan domainllm.AsyncGeneration {
	return domainllm.RunAsync(ctx, req, m.Generate)
}

func buildParams(name string, req domainllm.GenerationRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(name),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}

	if req.MaxNewTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxNewTokens))
	}

	return params
}

func (m *model) logDebug(fields logrus.Fields, message string) {
	if m.logger == nil {
		return
	}
	m.logger.WithFields(fields).Debug(message)
}

func (m *model) logError(fields logrus.Fields, err error, message string) {
	if m.logger == nil || err == nil {
		return
	}

	entry := m.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
