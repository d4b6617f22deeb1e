package mocks

import (
	"context"
	"sync"

	"github.com/you/scamwatch/domain"
)

// MockAuditLogger implements domain.AuditLogger for testing. Without an
// override it records every event so tests can assert on the trail.
type MockAuditLogger struct {
	LogEventFunc func(ctx context.Context, event *domain.AuditEvent) error

	mu     sync.Mutex
	events []*domain.AuditEvent
}

// NewMockAuditLogger creates a new MockAuditLogger with default behaviors
func NewMockAuditLogger() *MockAuditLogger {
	return &MockAuditLogger{}
}

// LogEvent records the event
func (m *MockAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	if m.LogEventFunc != nil {
		return m.LogEventFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns every recorded event, for assertions.
func (m *MockAuditLogger) Events() []*domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.AuditEvent, len(m.events))
	copy(out, m.events)
	return out
}

// LastEvent returns the most recent recorded event, or nil.
func (m *MockAuditLogger) LastEvent() *domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

// Compile-time interface compliance verification
var _ domain.AuditLogger = (*MockAuditLogger)(nil)
