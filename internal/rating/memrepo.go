package rating

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/vaticano-chess/internal/domain"
)

// memrepo is used when no database is configured. InTx holds the write lock
// for the whole unit of work and discards the staged rows on error.
type memrepo struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*domain.Rating
}

func NewMemoryRepository() Repository {
	return &memrepo{rows: make(map[int64]*domain.Rating)}
}

type memTx struct {
	m      *memrepo
	staged map[int64]*domain.Rating
	nextID int64
}

func (m *memrepo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m, staged: make(map[int64]*domain.Rating), nextID: m.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	for id, r := range tx.staged {
		m.rows[id] = r
	}
	m.nextID = tx.nextID
	return nil
}

func (m *memrepo) Active(ctx context.Context, userID, variant string) (*domain.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return findActive(m.rows, nil, userID, variant), nil
}

func copyRating(r *domain.Rating) *domain.Rating {
	c := *r
	return &c
}

// findActive prefers staged rows over committed ones.
func findActive(rows, staged map[int64]*domain.Rating, userID, variant string) *domain.Rating {
	match := func(r *domain.Rating) bool {
		return r.UserID == userID && r.Variant == variant && r.IsActive
	}
	for _, r := range staged {
		if match(r) {
			return copyRating(r)
		}
	}
	for id, r := range rows {
		if _, shadowed := staged[id]; shadowed {
			continue
		}
		if match(r) {
			return copyRating(r)
		}
	}
	return nil
}

func (t *memTx) Active(ctx context.Context, userID, variant string) (*domain.Rating, error) {
	return findActive(t.m.rows, t.staged, userID, variant), nil
}

func (t *memTx) Archive(ctx context.Context, id int64) error {
	r, ok := t.staged[id]
	if !ok {
		r, ok = t.m.rows[id]
	}
	if !ok || !r.IsActive {
		return ErrRatingNotActive
	}
	c := copyRating(r)
	c.IsActive = false
	t.staged[id] = c
	return nil
}

func (t *memTx) Insert(ctx context.Context, r *domain.Rating) (int64, error) {
	if existing := findActive(t.m.rows, t.staged, r.UserID, r.Variant); existing != nil {
		return 0, ErrDuplicateActive
	}
	t.nextID++
	c := copyRating(r)
	c.ID = t.nextID
	c.IsActive = true
	t.staged[c.ID] = c
	return c.ID, nil
}

func (m *memrepo) History(ctx context.Context, userID, variant string, limit int) ([]*domain.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Rating
	for _, r := range m.rows {
		if r.UserID == userID && r.Variant == variant {
			out = append(out, copyRating(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
