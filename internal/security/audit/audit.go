package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudylake/tenantapi/internal/security/middleware"
)

// Logger emits structured audit events for security-relevant actions
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, tenantID, userID, action, resource, resourceID, status string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("request_id", middleware.RequestIDFromContext(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, tenantID, userID, status string) {
	al.LogAction(ctx, tenantID, userID, "login", "session", "", status)
}

func (al *Logger) LogInvite(ctx context.Context, tenantID, userID, invitedEmail string) {
	al.LogAction(ctx, tenantID, userID, "invite", "user", invitedEmail, "sent")
}

func (al *Logger) LogTenantChange(ctx context.Context, tenantID, userID, action string) {
	al.LogAction(ctx, tenantID, userID, action, "tenant", tenantID, "ok")
}

func (al *Logger) LogDenied(ctx context.Context, tenantID, userID, reason string) {
	al.LogAction(ctx, tenantID, userID, "access_denied", "api", "", reason)
}
