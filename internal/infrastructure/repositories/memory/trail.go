package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

type NotificationRepository struct{ s *Store }

func (r *NotificationRepository) Create(ctx context.Context, n *entities.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&n.CreatedAt, nil)
	r.s.notifications[n.ID] = copyOf(n)
	return nil
}

func visibleTo(n *entities.Notification, orgID, userID uuid.UUID) bool {
	return n.OrgID == orgID && (n.UserID == nil || *n.UserID == userID)
}

func (r *NotificationRepository) List(ctx context.Context, orgID, userID uuid.UUID, params entities.ListParams) ([]*entities.Notification, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.Notification
	for _, n := range r.s.notifications {
		if !visibleTo(n, orgID, userID) {
			continue
		}
		if params.UnreadOnly && n.IsRead {
			continue
		}
		out = append(out, copyOf(n))
	}
	items, total := paginate(out, func(n *entities.Notification) time.Time { return n.CreatedAt }, params)
	return items, total, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, orgID, userID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, item := range r.s.notifications {
		if visibleTo(item, orgID, userID) && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, orgID, userID, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || !visibleTo(n, orgID, userID) {
		return false, nil
	}
	if !n.IsRead {
		now := r.s.now()
		n.IsRead = true
		n.ReadAt = &now
	}
	return true, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, orgID, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var updated int64
	now := r.s.now()
	for _, n := range r.s.notifications {
		if visibleTo(n, orgID, userID) && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			updated++
		}
	}
	return updated, nil
}

type AuditRepository struct{ s *Store }

func (r *AuditRepository) Create(ctx context.Context, log *entities.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit[log.OrgID] = append(r.s.audit[log.OrgID], copyOf(log))
	return nil
}

func (r *AuditRepository) LastHash(ctx context.Context, orgID uuid.UUID) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	chain := r.s.audit[orgID]
	if len(chain) == 0 {
		return "", nil
	}
	return chain[len(chain)-1].CurrentHash, nil
}

func (r *AuditRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.AuditLog, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.AuditLog
	for _, log := range r.s.audit[orgID] {
		if params.Type != "" && string(log.Action) != params.Type {
			continue
		}
		if params.Search != "" && log.Resource != params.Search {
			continue
		}
		out = append(out, copyOf(log))
	}
	items, total := paginate(out, func(l *entities.AuditLog) time.Time { return l.CreatedAt }, params)
	return items, total, nil
}

func (r *AuditRepository) ListRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]*entities.AuditLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entities.AuditLog{}
	for _, log := range r.s.audit[orgID] {
		if log.CreatedAt.Before(from) || log.CreatedAt.After(to) {
			continue
		}
		out = append(out, copyOf(log))
	}
	return out, nil
}

// Tamper replaces an entry's metadata in place. Tests use it to break the chain.
func (r *AuditRepository) Tamper(orgID uuid.UUID, index int, metadata map[string]interface{}) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if chain := r.s.audit[orgID]; index < len(chain) {
		chain[index].Metadata = metadata
	}
}
