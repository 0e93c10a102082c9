package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"spotlight/app/internal/data/database"
	"spotlight/app/internal/domain/discovery"
	"spotlight/app/internal/presentation/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't process your request right now."
)

type discoveryView struct {
	ID           string    `json:"id" doc:"Discovery identifier"`
	FieldOfTopic string    `json:"fieldOfTopic" doc:"Subject area, echoed verbatim"`
	Keywords     string    `json:"keywords" doc:"Keywords, echoed verbatim"`
	AnalysisText string    `json:"analysisText" doc:"Generated analysis"`
	InputTokens  int64     `json:"inputTokens" doc:"Prompt tokens reported by the model"`
	OutputTokens int64     `json:"outputTokens" doc:"Completion tokens reported by the model"`
	MaxTokens    int       `json:"maxTokens" doc:"Generation budget used for this discovery"`
	Temperature  float64   `json:"temperature" doc:"Sampling temperature used for this discovery"`
	CreatedAt    time.Time `json:"createdAt"`
}

type createDiscoveryInput struct {
	Body struct {
		FieldOfTopic string   `json:"fieldOfTopic" doc:"Subject area to analyse"`
		Keywords     string   `json:"keywords" doc:"Keywords that focus the analysis"`
		MaxTokens    *int     `json:"maxTokens,omitempty" doc:"Generation budget, defaults to 4000"`
		Temperature  *float64 `json:"temperature,omitempty" doc:"Sampling temperature between 0 and 2, defaults to 0.7"`
	}
}

type discoveryResponse struct {
	Status int
	Body   discoveryView
}

type discoveryIDInput struct {
	ID string `path:"id"`
}

type listDiscoveriesInput struct {
	Limit int `query:"limit" doc:"Maximum number of discoveries, newest first; defaults to 20, capped at 100"`
}

type listDiscoveriesResponse struct {
	Body struct {
		Discoveries []discoveryView `json:"discoveries"`
	}
}

type usageResponse struct {
	Body struct {
		Discoveries  int64 `json:"discoveries"`
		InputTokens  int64 `json:"inputTokens"`
		OutputTokens int64 `json:"outputTokens"`
	}
}

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerCreateDiscoveryRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-discovery",
		Method:        stdhttp.MethodPost,
		Path:          "/discoveries",
		Summary:       "Run an interest discovery",
		DefaultStatus: stdhttp.StatusCreated,
		Errors:        []int{stdhttp.StatusBadRequest, stdhttp.StatusBadGateway},
	}, s.createDiscoveryHandler)
}

func (s *Server) registerListDiscoveriesRoute() {
	huma.Get(s.api, "/discoveries", s.listDiscoveriesHandler, func(op *huma.Operation) {
		op.Summary = "List recent discoveries"
	})
}

func (s *Server) registerGetDiscoveryRoute() {
	huma.Get(s.api, "/discoveries/{id}", s.getDiscoveryHandler, func(op *huma.Operation) {
		op.Summary = "Fetch a discovery"
		op.Errors = []int{stdhttp.StatusNotFound}
	})
}

func (s *Server) registerReportRoute() {
	huma.Get(s.api, "/discoveries/{id}/report", s.reportHandler, htmlOperation(
		"Render a discovery as HTML",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerUsageRoute() {
	huma.Get(s.api, "/usage", s.usageHandler, func(op *huma.Operation) {
		op.Summary = "Token usage across all discoveries"
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) createDiscoveryHandler(ctx context.Context, input *createDiscoveryInput) (*discoveryResponse, error) {
	req := discovery.Request{
		FieldOfTopic: input.Body.FieldOfTopic,
		Keywords:     input.Body.Keywords,
		MaxTokens:    input.Body.MaxTokens,
		Temperature:  input.Body.Temperature,
	}

	record, err := s.discoveries.Discover(ctx, req)
	if err != nil {
		if eris.Is(err, discovery.ErrInvalidRequest) {
			return nil, huma.Error400BadRequest(validationMessage(err))
		}
		s.recordError(ctx, err, "creating discovery", logrus.Fields{"field_of_topic": req.FieldOfTopic})
		return nil, huma.Error502BadGateway("The language model could not complete the discovery.")
	}

	return &discoveryResponse{Status: stdhttp.StatusCreated, Body: newDiscoveryView(record)}, nil
}

func (s *Server) listDiscoveriesHandler(ctx context.Context, input *listDiscoveriesInput) (*listDiscoveriesResponse, error) {
	records, err := s.discoveries.List(ctx, input.Limit)
	if err != nil {
		s.recordError(ctx, err, "listing discoveries", logrus.Fields{"limit": input.Limit})
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	resp := &listDiscoveriesResponse{}
	resp.Body.Discoveries = make([]discoveryView, 0, len(records))
	for idx := range records {
		resp.Body.Discoveries = append(resp.Body.Discoveries, newDiscoveryView(&records[idx]))
	}
	return resp, nil
}

func (s *Server) getDiscoveryHandler(ctx context.Context, input *discoveryIDInput) (*discoveryResponse, error) {
	record, err := s.discoveries.Get(ctx, input.ID)
	if err != nil {
		switch {
		case eris.Is(err, discovery.ErrInvalidRequest):
			return nil, huma.Error400BadRequest(validationMessage(err))
		case eris.Is(err, discovery.ErrNotFound):
			return nil, huma.Error404NotFound(fmt.Sprintf("No discovery with id %q.", strings.TrimSpace(input.ID)))
		}
		s.recordError(ctx, err, "loading discovery", logrus.Fields{"discovery_id": input.ID})
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	return &discoveryResponse{Status: stdhttp.StatusOK, Body: newDiscoveryView(record)}, nil
}

func (s *Server) reportHandler(ctx context.Context, input *discoveryIDInput) (*htmlResponse, error) {
	record, err := s.discoveries.Get(ctx, input.ID)
	if err != nil {
		if eris.Is(err, discovery.ErrNotFound) || eris.Is(err, discovery.ErrInvalidRequest) {
			return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, "We couldn't find that discovery.")
		}
		s.recordError(ctx, err, "loading discovery report", logrus.Fields{"discovery_id": input.ID})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	result := record.Result
	body, err := renderComponent(ctx, templates.ReportPage(templates.ReportPageData{
		Title:        fmt.Sprintf("%s • Spotlight", result.FieldOfTopic),
		ID:           record.ID,
		FieldOfTopic: result.FieldOfTopic,
		Keywords:     result.Keywords,
		AnalysisText: result.AnalysisText,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		MaxTokens:    record.MaxTokens,
		Temperature:  record.Temperature,
		CreatedAt:    record.CreatedAt.UTC().Format(time.RFC3339),
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering discovery report", logrus.Fields{"discovery_id": record.ID})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this report right now.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) usageHandler(ctx context.Context, _ *struct{}) (*usageResponse, error) {
	usage, err := s.discoveries.Usage(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading usage", nil)
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	resp := &usageResponse{}
	resp.Body.Discoveries = usage.Discoveries
	resp.Body.InputTokens = usage.InputTokens
	resp.Body.OutputTokens = usage.OutputTokens
	return resp, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"
	resp.Status = stdhttp.StatusOK

	sqlDB, err := database.SQLDB(s.db)
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.recordError(ctx, err, "checking database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	return resp, nil
}

func newDiscoveryView(record *discovery.Record) discoveryView {
	return discoveryView{
		ID:           record.ID,
		FieldOfTopic: record.Result.FieldOfTopic,
		Keywords:     record.Result.Keywords,
		AnalysisText: record.Result.AnalysisText,
		InputTokens:  record.Result.InputTokens,
		OutputTokens: record.Result.OutputTokens,
		MaxTokens:    record.MaxTokens,
		Temperature:  record.Temperature,
		CreatedAt:    record.CreatedAt,
	}
}

// validationMessage returns the outermost reason, dropping the sentinel suffix.
func validationMessage(err error) string {
	message := err.Error()
	if before, _, found := strings.Cut(message, ": "+discovery.ErrInvalidRequest.Error()); found {
		return before
	}
	return message
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			op.Responses[strconv.Itoa(status)] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	body, err := renderComponent(ctx, templates.ErrorPage(templates.ErrorPageData{
		Title:       fmt.Sprintf("%s • Spotlight", label),
		StatusLabel: label,
		Message:     message,
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		s.logger.
			WithField("error", err.Error()).
			WithFields(requestFields(ctx, fields)).
			Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
