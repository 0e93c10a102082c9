package discovery

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	// DefaultMaxTokens is used when a request does not set MaxTokens.
	DefaultMaxTokens = 4000
	// DefaultTemperature is used when a request does not set Temperature.
	DefaultTemperature = 0.7

	minTemperature = 0.0
	maxTemperature = 2.0
)

var (
	// ErrInvalidRequest marks requests rejected before any model call.
	ErrInvalidRequest = eris.New("invalid discovery request")
	// ErrNotFound indicates no stored discovery matches the lookup.
	ErrNotFound = eris.New("discovery not found")
)

// Request is the input of a single interest discovery.
// Nil MaxTokens or Temperature fall back to DefaultMaxTokens and DefaultTemperature.
type Request struct {
	FieldOfTopic string
	Keywords     string
	MaxTokens    *int
	Temperature  *float64
}

// NewRequest builds a request with default generation settings.
func NewRequest(fieldOfTopic, keywords string) Request {
	return Request{FieldOfTopic: fieldOfTopic, Keywords: keywords}
}

// WithMaxTokens returns a copy of the request with MaxTokens set.
func (r Request) WithMaxTokens(maxTokens int) Request {
	r.MaxTokens = &maxTokens
	return r
}

// WithTemperature returns a copy of the request with Temperature set.
func (r Request) WithTemperature(temperature float64) Request {
	r.Temperature = &temperature
	return r
}

// EffectiveMaxTokens resolves MaxTokens against its default.
func (r Request) EffectiveMaxTokens() int {
	if r.MaxTokens == nil {
		return DefaultMaxTokens
	}
	return *r.MaxTokens
}

// EffectiveTemperature resolves Temperature against its default.
func (r Request) EffectiveTemperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// Validate reports why a request cannot be sent to the model. Returned errors wrap ErrInvalidRequest.
func (r Request) Validate() error {
	if strings.TrimSpace(r.FieldOfTopic) == "" {
		return eris.Wrap(ErrInvalidRequest, "field of topic is required")
	}
	if strings.TrimSpace(r.Keywords) == "" {
		return eris.Wrap(ErrInvalidRequest, "keywords are required")
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return eris.Wrapf(ErrInvalidRequest, "max tokens must be positive, got %d", *r.MaxTokens)
	}
	if t := r.EffectiveTemperature(); t < minTemperature || t > maxTemperature {
		return eris.Wrapf(ErrInvalidRequest, "temperature must be between %.1f and %.1f, got %g", minTemperature, maxTemperature, t)
	}
	return nil
}

// Result is the outcome of a discovery. FieldOfTopic and Keywords are echoed verbatim from the request.
type Result struct {
	FieldOfTopic string
	Keywords     string
	AnalysisText string
	InputTokens  int64
	OutputTokens int64
}

// Record is a persisted discovery together with the settings it ran with.
type Record struct {
	ID          string
	Result      Result
	MaxTokens   int
	Temperature float64
	CreatedAt   time.Time
}

// Usage aggregates token consumption across stored discoveries.
type Usage struct {
	Discoveries  int64
	InputTokens  int64
	OutputTokens int64
}
