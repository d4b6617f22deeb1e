// Package audit writes domain audit events as structured key=value log
// lines, the same trail format the rest of the service logs in.
package audit

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/you/scamwatch/domain"
)

// AuditLoggerImpl implements domain.AuditLogger on the standard logger.
type AuditLoggerImpl struct {
	logger *log.Logger
}

// NewAuditLogger creates an audit logger. A nil logger falls back to the
// process default.
func NewAuditLogger(logger *log.Logger) domain.AuditLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &AuditLoggerImpl{logger: logger}
}

// LogEvent implements domain.AuditLogger
func (l *AuditLoggerImpl) LogEvent(_ context.Context, event *domain.AuditEvent) error {
	if event == nil {
		return nil
	}
	l.logger.Printf("audit %s", formatEvent(event))
	return nil
}

// formatEvent renders the event as one key=value line. Field order is
// fixed and metadata keys are sorted so the trail is grep-able and
// deterministic.
func formatEvent(event *domain.AuditEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "event=%s success=%t user_id=%d", event.EventType, event.Success, event.UserID)
	if event.Email != "" {
		fmt.Fprintf(&b, " email=%s", event.Email)
	}
	if event.Phone != "" {
		fmt.Fprintf(&b, " phone=%s", event.Phone)
	}
	if event.SessionID != "" {
		fmt.Fprintf(&b, " session_id=%s", event.SessionID)
	}
	if event.IPAddress != "" {
		fmt.Fprintf(&b, " ip=%s", event.IPAddress)
	}
	if event.UserAgent != "" {
		fmt.Fprintf(&b, " user_agent=%q", event.UserAgent)
	}
	if event.ErrorMsg != "" {
		fmt.Fprintf(&b, " error=%q", event.ErrorMsg)
	}

	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, event.Metadata[k])
	}

	fmt.Fprintf(&b, " ts=%s", event.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"))
	return b.String()
}
