package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tripplanner/backend/internal/events"
	"github.com/tripplanner/backend/internal/models"
	"github.com/tripplanner/backend/internal/repositories"
)

type memoryAuditStore struct {
	mu      sync.Mutex
	admin   []models.AdminAuditLog
	user    []models.UserChangeLog
	logged  []models.AdminAuditLog
	queries []repositories.AuditQuery
	logErr  error
	listErr error
}

func inWindow(t time.Time, q repositories.AuditQuery) bool {
	if q.Since != nil && t.Before(*q.Since) {
		return false
	}
	if q.Until != nil && !t.Before(*q.Until) {
		return false
	}
	return true
}

func window[T any](rows []T, at func(T) time.Time, id func(T) string, q repositories.AuditQuery) []T {
	var out []T
	for _, r := range rows {
		if inWindow(at(r), q) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.NewestFirst {
			a, b = b, a
		}
		if !at(a).Equal(at(b)) {
			return at(a).Before(at(b))
		}
		return id(a) < id(b)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (m *memoryAuditStore) ListAdminActions(_ context.Context, q repositories.AuditQuery) ([]models.AdminAuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return window(m.admin,
		func(l models.AdminAuditLog) time.Time { return l.CreatedAt },
		func(l models.AdminAuditLog) string { return l.ID.String() }, q), nil
}

func (m *memoryAuditStore) ListUserChanges(_ context.Context, q repositories.AuditQuery) ([]models.UserChangeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return window(m.user,
		func(l models.UserChangeLog) time.Time { return l.CreatedAt },
		func(l models.UserChangeLog) string { return l.ID.String() }, q), nil
}

func (m *memoryAuditStore) GetAdminAction(_ context.Context, id uuid.UUID) (*models.AdminAuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.admin {
		if l.ID == id {
			l := l
			return &l, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memoryAuditStore) GetUserChange(_ context.Context, id uuid.UUID) (*models.UserChangeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.user {
		if l.ID == id {
			l := l
			return &l, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memoryAuditStore) LogAdminAction(_ context.Context, entry models.AdminAuditLog) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logErr != nil {
		return uuid.Nil, m.logErr
	}
	entry.ID = uuid.New()
	m.logged = append(m.logged, entry)
	return entry.ID, nil
}

type memoryArchiveStore struct {
	mu       sync.Mutex
	archives []models.ForensicsArchive
}

func (m *memoryArchiveStore) Insert(_ context.Context, a *models.ForensicsArchive) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.archives {
		if existing.WindowStart.Equal(a.WindowStart) {
			return false, nil
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.archives = append(m.archives, *a)
	return true, nil
}

func (m *memoryArchiveStore) List(_ context.Context, limit, offset int) ([]models.ForensicsArchive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.archives) {
		return nil, nil
	}
	out := m.archives[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryArchiveStore) GetByID(_ context.Context, id uuid.UUID) (*models.ForensicsArchive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.archives {
		if a.ID == id {
			a := a
			return &a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, stream string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if stream != events.StreamAdminAudit {
		return errors.New("unexpected stream " + stream)
	}
	p.events = append(p.events, event)
	return nil
}

type staticRoles map[uuid.UUID]string

func (s staticRoles) AdminRole(_ context.Context, id uuid.UUID) (string, error) {
	return s[id], nil
}
