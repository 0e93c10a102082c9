package http

import (
	"encoding/json"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader   = "X-Request-ID"
	sentryFlushWindow = 2 * time.Second
	rateLimitMessage  = "Too many discovery requests from this client. Please wait a moment and try again."
)

type middleware = func(huma.Context, func(huma.Context))

// middlewareChain lists the middlewares outermost first.
func (s *Server) middlewareChain() []middleware {
	return []middleware{
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestMetaMiddleware(),
		s.rateLimitMiddleware(),
		s.accessLogMiddleware(),
	}
}

// requestMetaMiddleware stores the request ID and client IP on the context and echoes the ID.
func (s *Server) requestMetaMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := requestMeta{ID: resolveRequestID(ctx.Header(requestIDHeader))}
		if req, _ := humago.Unwrap(ctx); req != nil {
			meta.ClientIP = clientIP(req)
		}

		goCtx := withRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, goCtx)
		ctx.SetHeader(requestIDHeader, meta.ID)

		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", meta.ID)
			hub.Scope().SetUser(sentry.User{IPAddress: meta.ClientIP})
		}

		next(ctx)
	}
}

func (s *Server) rateLimitMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta, ok := requestMetaFromContext(ctx.Context())
		if s.rateLimiter == nil || !ok || meta.ClientIP == "" || s.rateLimiter.Allow(meta.ClientIP) {
			next(ctx)
			return
		}

		if s.logger != nil {
			s.logger.
				WithError(eris.New("rate limit exceeded")).
				WithFields(requestFields(ctx.Context(), logrus.Fields{"path": ctx.URL().Path})).
				Warn("request rate limited")
		}

		ctx.SetHeader("Retry-After", "1")
		writeProblem(ctx, stdhttp.StatusTooManyRequests, rateLimitMessage)
	}
}

func (s *Server) accessLogMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		fields := logrus.Fields{
			"method":      ctx.Method(),
			"path":        ctx.URL().Path,
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		}
		if op := ctx.Operation(); op != nil {
			fields["route"] = op.Path
		}

		entry := s.logger.WithFields(requestFields(ctx.Context(), fields))
		switch {
		case status >= stdhttp.StatusInternalServerError:
			entry.Error("request failed")
		case status == stdhttp.StatusTooManyRequests:
			entry.Warn("request throttled")
		default:
			entry.Info("request completed")
		}
	}
}

func (s *Server) recoveryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, isErr := rec.(error)
			if isErr {
				err = eris.Wrap(err, "panic")
			} else {
				err = eris.Errorf("panic: %v", rec)
			}
			s.recordError(ctx.Context(), err, "panic recovered", nil)

			if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
				hub.RecoverWithContext(ctx.Context(), rec)
			}

			writeProblem(ctx, stdhttp.StatusInternalServerError, "internal server error")
		}()

		next(ctx)
	}
}

// sentryMiddleware gives every request its own hub clone, flushed when the request ends.
func (s *Server) sentryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		hub.Scope().SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			hub.Scope().SetTag("http.route", op.Path)
		}
		defer hub.Flush(sentryFlushWindow)

		next(huma.WithContext(ctx, sentry.SetHubOnContext(ctx.Context(), hub)))
	}
}

// writeProblem answers outside of an operation handler with the problem+json body Huma uses.
func writeProblem(ctx huma.Context, status int, detail string) {
	body, err := json.Marshal(&huma.ErrorModel{
		Title:  stdhttp.StatusText(status),
		Status: status,
		Detail: detail,
	})
	if err != nil {
		body = []byte(`{"status":` + strconv.Itoa(status) + `}`)
	}

	ctx.SetHeader("Content-Type", "application/problem+json")
	ctx.SetStatus(status)
	_, _ = ctx.BodyWriter().Write(body)
}
