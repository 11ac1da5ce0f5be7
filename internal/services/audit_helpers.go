package services

import (
	"context"

	"go.uber.org/zap"
)

// recordAudit persists entry; audit failures are logged and never fail the mutation.
func recordAudit(audit *AuditService, log *zap.Logger, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Log(ctx, entry); err != nil && log != nil {
		log.Warn("audit log write failed",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.Error(err),
		)
	}
}
