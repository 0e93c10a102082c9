// Command discover runs a single interest discovery against the configured model.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"spotlight/app/internal/app/bootstrap"
	"spotlight/app/internal/domain/discovery"
	"spotlight/app/internal/platform/config"
	applog "spotlight/app/internal/platform/log"
)

// runner is the part of discovery.Orchestrator the command drives.
type runner interface {
	Discover(ctx context.Context, req discovery.Request) (discovery.Result, error)
	DiscoverAsync(ctx context.Context, req discovery.Request) <-chan discovery.Outcome
}

type app struct {
	loadConfig func() (*config.Config, error)
	newRunner  func(cfg config.Config, logger *logrus.Logger) (runner, error)
}

type options struct {
	field       string
	keywords    string
	maxTokens   int
	temperature float64
	async       bool
	jsonOutput  bool
}

type resultJSON struct {
	FieldOfTopic string `json:"fieldOfTopic"`
	Keywords     string `json:"keywords"`
	AnalysisText string `json:"analysisText"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cmd := newRootCommand(app{
		loadConfig: config.Load,
		newRunner: func(cfg config.Config, logger *logrus.Logger) (runner, error) {
			return bootstrap.NewOrchestrator(cfg, logger)
		},
	})

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(a app) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Generate a trend analysis for a field of topic and keywords",
		Long: `discover sends one field of topic and a set of keywords to the configured
language model and prints the resulting analysis together with the token usage
the model reported.

The model is selected with LLM_MODEL (for example openai/gpt-4o-mini or
deepseek/deepseek-chat) and authenticated with LLM_API_KEY. Values are read
from the environment and from a .env file in the working directory.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := discovery.NewRequest(opts.field, opts.keywords)
			if cmd.Flags().Changed("max-tokens") {
				req = req.WithMaxTokens(opts.maxTokens)
			}
			if cmd.Flags().Changed("temperature") {
				req = req.WithTemperature(opts.temperature)
			}
			return a.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), req, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.field, "field", "", "field of topic to analyse")
	flags.StringVar(&opts.keywords, "keywords", "", "keywords that focus the analysis")
	flags.IntVar(&opts.maxTokens, "max-tokens", discovery.DefaultMaxTokens, "generation budget in tokens")
	flags.Float64Var(&opts.temperature, "temperature", discovery.DefaultTemperature, "sampling temperature between 0 and 2")
	flags.BoolVar(&opts.async, "async", false, "run the discovery through the non-blocking path")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("keywords")

	return cmd
}

func (a app) run(ctx context.Context, stdout, stderr io.Writer, req discovery.Request, opts *options) error {
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}
	logger.SetOutput(stderr)

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	r, err := a.newRunner(*cfg, logger)
	if err != nil {
		return eris.Wrap(err, "failure building discovery orchestrator")
	}

	var result discovery.Result
	if opts.async {
		outcome := <-r.DiscoverAsync(ctx, req)
		result, err = outcome.Result, outcome.Err
	} else {
		result, err = r.Discover(ctx, req)
	}
	if err != nil {
		if sentryHub != nil {
			sentryHub.CaptureException(err)
		}
		return eris.Wrap(err, "running interest discovery")
	}

	return writeResult(stdout, result, opts.jsonOutput)
}

func writeResult(w io.Writer, result discovery.Result, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(resultJSON(result)); err != nil {
			return eris.Wrap(err, "encoding result")
		}
		return nil
	}

	_, err := fmt.Fprintf(w, "%s\n\n---\nfield of topic: %s\nkeywords: %s\ninput tokens: %d\noutput tokens: %d\n",
		result.AnalysisText, result.FieldOfTopic, result.Keywords, result.InputTokens, result.OutputTokens)
	if err != nil {
		return eris.Wrap(err, "writing result")
	}
	return nil
}
