package composables

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/showconnect/esign/pkg/constants"
)

var ErrNoTenantID = errors.New("no tenant id found in context")

func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

func UseTenantID(ctx context.Context) (string, error) {
	tenantID, ok := ctx.Value(constants.TenantIDKey).(string)
	if !ok || tenantID == "" {
		return "", ErrNoTenantID
	}
	return tenantID, nil
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

func UseLogger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logger
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, constants.ClientIPKey, ip)
}

func UseClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(constants.ClientIPKey).(string)
	return ip
}

func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, constants.UserAgentKey, ua)
}

func UseUserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(constants.UserAgentKey).(string)
	return ua
}

// ClientIP resolves the original client address. Cloudflare's header wins,
// then the first X-Forwarded-For hop, then the socket address.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
