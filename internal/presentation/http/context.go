package http

import (
	"context"
	"net"
	stdhttp "net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const requestMetaContextKey contextKey = "spotlight/request-meta"

// requestMeta is resolved once per request and shared by rate limiting, logging and error reporting.
type requestMeta struct {
	ID       string
	ClientIP string
}

func withRequestMeta(ctx context.Context, meta requestMeta) context.Context {
	return context.WithValue(ctx, requestMetaContextKey, meta)
}

func requestMetaFromContext(ctx context.Context) (requestMeta, bool) {
	if ctx == nil {
		return requestMeta{}, false
	}
	meta, ok := ctx.Value(requestMetaContextKey).(requestMeta)
	return meta, ok
}

// RequestIDFromContext returns the discovery request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	meta, _ := requestMetaFromContext(ctx)
	return meta.ID
}

// resolveRequestID keeps a well-formed inbound UUID and mints one otherwise.
func resolveRequestID(inbound string) string {
	if parsed, err := uuid.Parse(strings.TrimSpace(inbound)); err == nil {
		return parsed.String()
	}
	return uuid.NewString()
}

// requestFields adds request_id and client_ip to fields when the context carries them.
func requestFields(ctx context.Context, fields logrus.Fields) logrus.Fields {
	if fields == nil {
		fields = logrus.Fields{}
	}
	meta, ok := requestMetaFromContext(ctx)
	if !ok {
		return fields
	}
	if meta.ID != "" {
		fields["request_id"] = meta.ID
	}
	if meta.ClientIP != "" {
		fields["client_ip"] = meta.ClientIP
	}
	return fields
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientIP(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if candidate := strings.TrimSpace(first); candidate != "" {
			return candidate
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
