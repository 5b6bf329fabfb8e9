package analytics

import (
	"context"
	"sync"

	"github.com/openadstack/adselect/internal/models"
)

// MockAnalytics collects events in memory for tests.
type MockAnalytics struct {
	mu     sync.Mutex
	Events []EventRecord
	Err    error
}

// RecordEvent appends the event, or returns the configured error.
func (m *MockAnalytics) RecordEvent(_ context.Context, eventType, requestID, contentID string, rc models.RequestContext) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := EventRecord{
		EventType:     eventType,
		RequestID:     requestID,
		CustomerID:    rc.CustomerID,
		MarketplaceID: rc.MarketplaceID,
	}
	if contentID != "" {
		rec.ContentID = &contentID
	}
	m.Events = append(m.Events, rec)
	return nil
}

// EventTypes returns the recorded event types in order.
func (m *MockAnalytics) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.EventType
	}
	return out
}
