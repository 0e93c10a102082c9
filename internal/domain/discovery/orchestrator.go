package discovery

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainllm "spotlight/app/internal/domain/llm"
	applog "spotlight/app/internal/platform/log"
)

// DefaultComponent tags orchestrator log entries when no component name is configured.
const DefaultComponent = "interest_discovery"

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	Model     domainllm.Model
	Logger    *logrus.Logger
	Component string
}

// Outcome is delivered on the channel returned by DiscoverAsync.
type Outcome struct {
	Result Result
	Err    error
}

// Orchestrator turns a Request into a Result through a single model call.
// It holds no per-call state and is safe for concurrent use when its model is.
type Orchestrator struct {
	model  domainllm.Model
	logger *logrus.Entry
}

// NewOrchestrator validates the options and builds an Orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Model == nil {
		return nil, eris.New("llm model is required")
	}

	component := strings.TrimSpace(opts.Component)
	if component == "" {
		component = DefaultComponent
	}

	return &Orchestrator{
		model:  opts.Model,
		logger: applog.WithComponent(opts.Logger, component),
	}, nil
}

// Discover runs a discovery and blocks until the model responds.
// Model errors are returned unchanged.
func (o *Orchestrator) Discover(ctx context.Context, req Request) (Result, error) {
	return o.run(ctx, req, "sync", o.model.Generate)
}

// DiscoverAsync starts a discovery and returns a channel that yields exactly one Outcome.
func (o *Orchestrator) DiscoverAsync(ctx context.Context, req Request) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		result, err := o.run(ctx, req, "async", o.awaitAsync)
		out <- Outcome{Result: result, Err: err}
	}()
	return out
}

// awaitAsync waits on the model's own channel. Cancellation is left to the model.
func (o *Orchestrator) awaitAsync(ctx context.Context, req domainllm.GenerationRequest) (domainllm.GenerationResponse, error) {
	outcome, ok := <-o.model.GenerateAsync(ctx, req)
	if !ok {
		return domainllm.GenerationResponse{}, eris.New("llm model closed its result channel without a response")
	}
	return outcome.Response, outcome.Err
}

func (o *Orchestrator) run(ctx context.Context, req Request, mode string, generate domainllm.GenerateFunc) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	fields := logrus.Fields{
		"field_of_topic": req.FieldOfTopic,
		"keywords":       req.Keywords,
		"mode":           mode,
	}
	o.logger.WithFields(fields).Info("starting interest discovery")

	genReq, err := buildGenerationRequest(req)
	if err != nil {
		return Result{}, err
	}

	resp, err := generate(ctx, genReq)
	if err != nil {
		o.logger.WithFields(fields).WithField("error", err.Error()).Error("interest discovery failed")
		return Result{}, err
	}

	result := Result{
		FieldOfTopic: req.FieldOfTopic,
		Keywords:     req.Keywords,
		AnalysisText: resp.OutputText,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}

	o.logger.WithFields(fields).WithFields(logrus.Fields{
		"input_tokens":  result.InputTokens,
		"output_tokens": result.OutputTokens,
	}).Info("interest discovery completed")

	return result, nil
}

func buildGenerationRequest(req Request) (domainllm.GenerationRequest, error) {
	prompt, err := RenderPrompt(req.FieldOfTopic, req.Keywords)
	if err != nil {
		return domainllm.GenerationRequest{}, err
	}

	return domainllm.GenerationRequest{
		SystemPrompt: SystemPrompt,
		Prompt:       prompt,
		MaxNewTokens: req.EffectiveMaxTokens(),
		Temperature:  req.EffectiveTemperature(),
	}, nil
}
