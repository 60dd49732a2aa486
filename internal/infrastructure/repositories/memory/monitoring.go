package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

type AlertRepository struct{ s *Store }

func (r *AlertRepository) Create(ctx context.Context, a *entities.Alert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.alerts[a.ID] = copyOf(a)
	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.alerts[id]
	if !ok || a.OrgID != orgID {
		return nil, nil
	}
	return r.withCustomer(a), nil
}

func (r *AlertRepository) withCustomer(a *entities.Alert) *entities.Alert {
	out := copyOf(a)
	out.Customer = copyOf(r.s.customers[a.CustomerID])
	return out
}

func (r *AlertRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.Alert, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.Alert
	for _, a := range r.s.alerts {
		if a.OrgID != orgID {
			continue
		}
		if params.Status != "" && string(a.Status) != params.Status {
			continue
		}
		if params.Severity != "" && string(a.Severity) != params.Severity {
			continue
		}
		if params.CustomerID != nil && a.CustomerID != *params.CustomerID {
			continue
		}
		if params.Search != "" && !containsFold(a.RuleName, params.Search) {
			continue
		}
		out = append(out, r.withCustomer(a))
	}
	items, total := paginate(out, func(a *entities.Alert) time.Time { return a.CreatedAt }, params)
	return items, total, nil
}

func (r *AlertRepository) Stats(ctx context.Context, orgID uuid.UUID) (*entities.AlertStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := &entities.AlertStats{}
	for _, a := range r.s.alerts {
		if a.OrgID != orgID {
			continue
		}
		switch a.Status {
		case entities.AlertStatusOpen:
			stats.Open++
		case entities.AlertStatusUnderReview:
			stats.UnderReview++
		case entities.AlertStatusEscalated:
			stats.Escalated++
		case entities.AlertStatusClosed:
			stats.Closed++
		}
	}
	return stats, nil
}

func (r *AlertRepository) OpenSeverityCounts(ctx context.Context, orgID uuid.UUID) (*entities.SeverityCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := &entities.SeverityCounts{}
	for _, a := range r.s.alerts {
		if a.OrgID != orgID || a.Status == entities.AlertStatusClosed {
			continue
		}
		switch a.Severity {
		case entities.SeverityLow:
			counts.Low++
		case entities.SeverityMedium:
			counts.Medium++
		case entities.SeverityHigh:
			counts.High++
		case entities.SeverityCritical:
			counts.Critical++
		}
	}
	return counts, nil
}

func (r *AlertRepository) UpdateIfStatus(ctx context.Context, a *entities.Alert, expected entities.AlertStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.alerts[a.ID]
	if !ok || stored.OrgID != a.OrgID || stored.Status != expected {
		return false, nil
	}
	r.s.stamp(nil, &a.UpdatedAt)
	next := copyOf(a)
	next.Customer = nil
	r.s.alerts[a.ID] = next
	return true, nil
}

type ScreeningRepository struct{ s *Store }

func (r *ScreeningRepository) Create(ctx context.Context, sr *entities.ScreeningResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&sr.CreatedAt, nil)
	if sr.ScreenedAt.IsZero() {
		sr.ScreenedAt = sr.CreatedAt
	}
	r.s.screenings[sr.ID] = copyOf(sr)
	return nil
}

func (r *ScreeningRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.ScreeningResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sr, ok := r.s.screenings[id]
	if !ok || sr.OrgID != orgID {
		return nil, nil
	}
	out := copyOf(sr)
	out.Customer = copyOf(r.s.customers[sr.CustomerID])
	return out, nil
}

func (r *ScreeningRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.ScreeningResult, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.ScreeningResult
	for _, sr := range r.s.screenings {
		if sr.OrgID != orgID {
			continue
		}
		if params.Status != "" && string(sr.Status) != params.Status {
			continue
		}
		if params.Type != "" && string(sr.ScreeningType) != params.Type {
			continue
		}
		if params.CustomerID != nil && sr.CustomerID != *params.CustomerID {
			continue
		}
		item := copyOf(sr)
		item.Customer = copyOf(r.s.customers[sr.CustomerID])
		out = append(out, item)
	}
	items, total := paginate(out, func(s *entities.ScreeningResult) time.Time { return s.ScreenedAt }, params)
	return items, total, nil
}

func (r *ScreeningRepository) Stats(ctx context.Context, orgID uuid.UUID) (*entities.ScreeningStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := &entities.ScreeningStats{}
	for _, sr := range r.s.screenings {
		if sr.OrgID != orgID {
			continue
		}
		stats.TotalScreened++
		if sr.Status.Reviewable() && sr.ReviewDecision == nil {
			stats.PendingReview++
		}
		if sr.ReviewDecision != nil && *sr.ReviewDecision == entities.ReviewConfirmedHit {
			stats.ConfirmedHits++
		}
	}
	return stats, nil
}

func (r *ScreeningRepository) RecordReview(ctx context.Context, sr *entities.ScreeningResult) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.screenings[sr.ID]
	if !ok || stored.OrgID != sr.OrgID || stored.ReviewDecision != nil {
		return false, nil
	}
	stored.ReviewDecision = copyOf(sr.ReviewDecision)
	stored.ReviewedByID = copyOf(sr.ReviewedByID)
	stored.ReviewedAt = copyOf(sr.ReviewedAt)
	return true, nil
}

type MonitoringRuleRepository struct{ s *Store }

func (r *MonitoringRuleRepository) Create(ctx context.Context, rule *entities.MonitoringRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&rule.CreatedAt, &rule.UpdatedAt)
	r.s.rules[rule.ID] = copyOf(rule)
	return nil
}

func (r *MonitoringRuleRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.MonitoringRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rule, ok := r.s.rules[id]
	if !ok || rule.OrgID != orgID {
		return nil, nil
	}
	return r.withAlertCount(rule), nil
}

func (r *MonitoringRuleRepository) withAlertCount(rule *entities.MonitoringRule) *entities.MonitoringRule {
	out := copyOf(rule)
	since := r.s.now().AddDate(0, 0, -30)
	out.AlertCount30d = 0
	for _, a := range r.s.alerts {
		if a.MonitoringRuleID != nil && *a.MonitoringRuleID == rule.ID && a.CreatedAt.After(since) {
			out.AlertCount30d++
		}
	}
	return out
}

// List returns rules oldest first, system defaults ahead of custom rules.
func (r *MonitoringRuleRepository) List(ctx context.Context, orgID uuid.UUID) ([]*entities.MonitoringRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entities.MonitoringRule{}
	for _, rule := range r.s.rules {
		if rule.OrgID == orgID {
			out = append(out, r.withAlertCount(rule))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsSystemDefault != out[j].IsSystemDefault {
			return out[i].IsSystemDefault
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MonitoringRuleRepository) Update(ctx context.Context, rule *entities.MonitoringRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.rules[rule.ID]
	if !ok || stored.OrgID != rule.OrgID {
		return nil
	}
	r.s.stamp(nil, &rule.UpdatedAt)
	next := copyOf(rule)
	next.RuleType = stored.RuleType
	next.IsSystemDefault = stored.IsSystemDefault
	r.s.rules[rule.ID] = next
	return nil
}

func (r *MonitoringRuleRepository) Delete(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rule, ok := r.s.rules[id]
	if !ok || rule.OrgID != orgID || rule.IsSystemDefault {
		return false, nil
	}
	delete(r.s.rules, id)
	return true, nil
}

func (r *MonitoringRuleRepository) HasSystemDefaults(ctx context.Context, orgID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rule := range r.s.rules {
		if rule.OrgID == orgID && rule.IsSystemDefault {
			return true, nil
		}
	}
	return false, nil
}
