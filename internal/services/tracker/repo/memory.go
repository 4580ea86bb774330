package repo

import (
	"context"
	"sync"

	"sentinel/internal/platform/logger"
	"sentinel/internal/services/tracker/domain"
)

// Memory is an in process domain.Store used for dry runs and tests
type Memory struct {
	mu     sync.Mutex
	bySha  map[string]int
	rows   []domain.Contribution
	mirror domain.Mirror
}

var _ domain.Store = (*Memory)(nil)

// NewMemory returns an empty Memory store, optionally mirroring accepted rows
func NewMemory(opts ...Option) *Memory {
	var s Store
	for _, o := range opts {
		o(&s)
	}
	return &Memory{bySha: map[string]int{}, mirror: s.mirror}
}

// AddBatch keeps contributions with unseen shas and returns how many were new
func (m *Memory) AddBatch(ctx context.Context, batch []domain.Contribution) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var accepted []domain.Contribution
	m.mu.Lock()
	for _, c := range prepare(batch) {
		if _, ok := m.bySha[c.Sha]; ok {
			continue
		}
		m.bySha[c.Sha] = len(m.rows)
		m.rows = append(m.rows, c)
		accepted = append(accepted, c)
	}
	m.mu.Unlock()

	if m.mirror != nil && len(accepted) > 0 {
		if err := m.mirror.Append(ctx, accepted); err != nil {
			logger.C(ctx).Warn().Err(err).Int("rows", len(accepted)).Msg("tracker: mirror append failed")
		}
	}
	return len(accepted), nil
}

// Known reports whether sha was added
func (m *Memory) Known(_ context.Context, sha string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bySha[sha]
	return ok, nil
}

// All returns the stored contributions in insertion order
func (m *Memory) All() []domain.Contribution {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Contribution, len(m.rows))
	copy(out, m.rows)
	return out
}

// Len returns the number of stored contributions
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
