package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Discoverer is the subset of Orchestrator the service depends on.
type Discoverer interface {
	Discover(ctx context.Context, req Request) (Result, error)
}

// Service runs discoveries and keeps a history of their results.
type Service interface {
	Discover(ctx context.Context, req Request) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Usage(ctx context.Context) (Usage, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type service struct {
	discoverer Discoverer
	repo       Repository
	logger     *logrus.Logger
	sentryHub  *sentry.Hub
	now        func() time.Time
	newID      func() string
}

var _ Service = (*service)(nil)

// NewService wires the discovery service with its dependencies.
func NewService(discoverer Discoverer, repo Repository, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if discoverer == nil {
		return nil, eris.New("discoverer is required")
	}
	if repo == nil {
		return nil, eris.New("discovery repository is required")
	}

	return &service{
		discoverer: discoverer,
		repo:       repo,
		logger:     logger,
		sentryHub:  hub,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

func (s *service) Discover(ctx context.Context, req Request) (*Record, error) {
	fields := logrus.Fields{"field_of_topic": req.FieldOfTopic}

	result, err := s.discoverer.Discover(ctx, req)
	if err != nil {
		if eris.Is(err, ErrInvalidRequest) {
			return nil, err
		}
		s.recordError(fields, err, "running interest discovery")
		return nil, eris.Wrap(err, "running interest discovery")
	}

	record := &Record{
		ID:          s.newID(),
		Result:      result,
		MaxTokens:   req.EffectiveMaxTokens(),
		Temperature: req.EffectiveTemperature(),
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.recordError(logrus.Fields{"discovery_id": record.ID}, err, "persisting discovery")
		return nil, eris.Wrapf(err, "persisting discovery: %s", record.ID)
	}

	return record, nil
}

func (s *service) Get(ctx context.Context, id string) (*Record, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, eris.Wrap(ErrInvalidRequest, "discovery id is required")
	}

	record, err := s.repo.GetByID(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"discovery_id": trimmed}, err, "retrieving discovery")
		return nil, eris.Wrapf(err, "retrieving discovery: %s", trimmed)
	}

	if record == nil {
		return nil, eris.Wrapf(ErrNotFound, "retrieving discovery: %s", trimmed)
	}

	return record, nil
}

func (s *service) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	records, err := s.repo.List(ctx, limit)
	if err != nil {
		s.recordError(nil, err, "listing discoveries")
		return nil, eris.Wrap(err, "listing discoveries")
	}

	return records, nil
}

func (s *service) Usage(ctx context.Context) (Usage, error) {
	usage, err := s.repo.TotalUsage(ctx)
	if err != nil {
		s.recordError(nil, err, "summing token usage")
		return Usage{}, eris.Wrap(err, "summing token usage")
	}
	return usage, nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
