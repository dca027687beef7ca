package aegis

import (
	"context"
	"io"

	internalaudit "github.com/MrEthical07/aegis/internal/audit"
	"github.com/sirupsen/logrus"
)

// Audit event types.
const (
	AuditSignUp            = "sign_up"
	AuditSignInSuccess     = "sign_in_success"
	AuditSignInFailure     = "sign_in_failure"
	AuditSignOut           = "sign_out"
	AuditSessionCreated    = "session_created"
	AuditSessionRevoked    = "session_revoked"
	AuditSessionRevokedAll = "session_revoked_all"
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogSink records audit events through logger.
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return internalaudit.NewLogSink(logger)
}

// emitAudit is the flows.Runtime audit hook. Error values are the error
// code strings produced by the flows, never raw store faults.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil || eventType == "" {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	e.audit.Emit(ctx, event)
}
