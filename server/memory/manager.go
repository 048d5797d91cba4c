// Package memory keeps long-term customer summaries (preferences,
// allergies, special dates) keyed by phone number. Records expire after a
// fixed horizon and are invisible to reads afterwards.
package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
	storex "github.com/tanpawarit/cesto-mcp-server/server/store"
)

const retention = 15 * 24 * time.Hour

type Manager struct {
	store storex.Store
	now   func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func New(store storex.Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	m := &Manager{store: store, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// SaveSummary upserts the summary for a phone. An existing record keeps
// its ID; the expiry horizon restarts on every write.
func (m *Manager) SaveSummary(ctx context.Context, phone, summary string) (contractx.MemoryRecord, error) {
	phone = strings.TrimSpace(phone)
	summary = strings.TrimSpace(summary)
	if phone == "" {
		return contractx.MemoryRecord{}, contractx.NewError(
			contractx.KindInvalidArguments, "customer_phone is required")
	}
	if summary == "" {
		return contractx.MemoryRecord{}, contractx.NewError(
			contractx.KindInvalidArguments, "summary is required")
	}
	now := m.now().UTC()
	rec := contractx.MemoryRecord{
		ID:            uuid.NewString(),
		CustomerPhone: phone,
		Summary:       summary,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(retention),
	}
	return m.store.SaveSummary(ctx, rec)
}
