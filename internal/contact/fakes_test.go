package contact

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/contact/entity"
)

// memRepo mimics repo.Repo, including sql.ErrNoRows on unknown ids.
type memRepo struct {
	mu       sync.Mutex
	rows     map[string]entity.Contact
	seq      int
	lastList entity.ListFilter
	err      error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]entity.Contact{}}
}

func (m *memRepo) List(_ context.Context, f entity.ListFilter) ([]*entity.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = f
	if m.err != nil {
		return nil, m.err
	}
	all := make([]*entity.Contact, 0, len(m.rows))
	for _, c := range m.rows {
		if f.Favorite != nil && c.Favorite != *f.Favorite {
			continue
		}
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if f.Offset >= len(all) {
		return []*entity.Contact{}, nil
	}
	if f.Limit == 0 {
		return all[f.Offset:], nil
	}
	return all[f.Offset:min(len(all), f.Offset+f.Limit)], nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*entity.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m *memRepo) Create(_ context.Context, c *entity.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.seq++
	ts := time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
	c.CreatedAt, c.UpdatedAt = ts, ts
	m.rows[c.ID] = *c
	return nil
}

func (m *memRepo) Update(_ context.Context, id string, p entity.Patch) (*entity.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Favorite != nil {
		c.Favorite = *p.Favorite
	}
	m.rows[id] = c
	return &c, nil
}

func (m *memRepo) Delete(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "c" + string(rune('0'+n))
	}
}
