package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
)

type STRCaseRepository struct{ s *Store }

func (r *STRCaseRepository) Create(ctx context.Context, c *entities.STRCase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&c.CreatedAt, &c.UpdatedAt)
	r.s.strCases[c.ID] = copyOf(c)
	return nil
}

func (r *STRCaseRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.STRCase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.strCases[id]
	if !ok || c.OrgID != orgID {
		return nil, nil
	}
	out := copyOf(c)
	out.Customer = copyOf(r.s.customers[c.CustomerID])
	return out, nil
}

func (r *STRCaseRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.STRCase, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.STRCase
	for _, c := range r.s.strCases {
		if c.OrgID != orgID {
			continue
		}
		if params.Status != "" && string(c.Status) != params.Status {
			continue
		}
		if params.CustomerID != nil && c.CustomerID != *params.CustomerID {
			continue
		}
		if params.Search != "" && !containsFold(c.Title, params.Search) {
			continue
		}
		item := copyOf(c)
		item.Customer = copyOf(r.s.customers[c.CustomerID])
		out = append(out, item)
	}
	items, total := paginate(out, func(c *entities.STRCase) time.Time { return c.CreatedAt }, params)
	return items, total, nil
}

func (r *STRCaseRepository) Stats(ctx context.Context, orgID uuid.UUID) (*entities.STRStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := &entities.STRStats{}
	for _, c := range r.s.strCases {
		if c.OrgID != orgID {
			continue
		}
		switch c.Status {
		case entities.STRStatusDraft:
			stats.Draft++
		case entities.STRStatusUnderInvestigation:
			stats.UnderInvestigation++
		case entities.STRStatusFiledToFIU:
			stats.FiledToFIU++
		case entities.STRStatusClosed:
			stats.Closed++
		}
	}
	return stats, nil
}

func (r *STRCaseRepository) UpdateIfStatus(ctx context.Context, c *entities.STRCase, expected entities.STRStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.strCases[c.ID]
	if !ok || stored.OrgID != c.OrgID || stored.Status != expected {
		return false, nil
	}
	r.s.stamp(nil, &c.UpdatedAt)
	next := copyOf(c)
	next.Customer = nil
	r.s.strCases[c.ID] = next
	return true, nil
}

type PolicyRepository struct{ s *Store }

func (r *PolicyRepository) Create(ctx context.Context, p *entities.Policy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.policies {
		if existing.OrgID == p.OrgID && existing.Version == p.Version {
			return repositories.ErrUniqueViolation
		}
	}
	r.s.stamp(&p.CreatedAt, &p.UpdatedAt)
	r.s.policies[p.ID] = copyOf(p)
	return nil
}

func (r *PolicyRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Policy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.policies[id]
	if !ok || p.OrgID != orgID {
		return nil, nil
	}
	return copyOf(p), nil
}

func (r *PolicyRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.Policy, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.Policy
	for _, p := range r.s.policies {
		if p.OrgID != orgID {
			continue
		}
		if params.Status != "" && string(p.Status) != params.Status {
			continue
		}
		if params.Search != "" && !containsFold(p.Title, params.Search) && !containsFold(p.TitleAR, params.Search) {
			continue
		}
		out = append(out, copyOf(p))
	}
	items, total := paginate(out, func(p *entities.Policy) time.Time { return p.CreatedAt }, params)
	return items, total, nil
}

func (r *PolicyRepository) NextVersion(ctx context.Context, orgID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.policies {
		if p.OrgID == orgID {
			n++
		}
	}
	return n + 1, nil
}

func (r *PolicyRepository) UpdateDraft(ctx context.Context, p *entities.Policy) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.policies[p.ID]
	if !ok || stored.OrgID != p.OrgID || stored.Status != entities.PolicyStatusDraft {
		return false, nil
	}
	stored.Title, stored.TitleAR = p.Title, p.TitleAR
	stored.Content, stored.ContentAR = p.Content, p.ContentAR
	r.s.stamp(nil, &stored.UpdatedAt)
	p.UpdatedAt = stored.UpdatedAt
	return true, nil
}

func (r *PolicyRepository) Approve(ctx context.Context, p *entities.Policy) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.policies[p.ID]
	if !ok || stored.OrgID != p.OrgID || stored.Status != entities.PolicyStatusDraft {
		return false, nil
	}
	if len(stored.MissingContent()) > 0 {
		return false, nil
	}
	if p.ApprovedBy == nil || *p.ApprovedBy == stored.CreatedBy {
		return false, fmt.Errorf("approver must differ from creator")
	}
	for _, other := range r.s.policies {
		if other.OrgID == p.OrgID && other.ID != p.ID && other.Status == entities.PolicyStatusApproved {
			other.Status = entities.PolicyStatusSuperseded
			r.s.stamp(nil, &other.UpdatedAt)
		}
	}
	stored.Status = entities.PolicyStatusApproved
	stored.ApprovedBy = copyOf(p.ApprovedBy)
	stored.ApprovedAt = copyOf(p.ApprovedAt)
	r.s.stamp(nil, &stored.UpdatedAt)
	return true, nil
}

func (r *PolicyRepository) ListApproved(ctx context.Context, orgID uuid.UUID) ([]*entities.Policy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entities.Policy{}
	for _, p := range r.s.policies {
		if p.OrgID == orgID && p.Status == entities.PolicyStatusApproved {
			out = append(out, copyOf(p))
		}
	}
	return out, nil
}

type RiskAssessmentRepository struct{ s *Store }

func (r *RiskAssessmentRepository) Create(ctx context.Context, a *entities.RiskAssessment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.Status == entities.AssessmentStatusDraft {
		for _, existing := range r.s.assessments {
			if existing.OrgID == a.OrgID && existing.Status == entities.AssessmentStatusDraft {
				return repositories.ErrUniqueViolation
			}
		}
	}
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	stored := copyOf(a)
	stored.Factors = nil
	r.s.assessments[a.ID] = stored
	return nil
}

func (r *RiskAssessmentRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.RiskAssessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.assessments[id]
	if !ok || a.OrgID != orgID {
		return nil, nil
	}
	return copyOf(a), nil
}

func (r *RiskAssessmentRepository) GetDraft(ctx context.Context, orgID uuid.UUID) (*entities.RiskAssessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.assessments {
		if a.OrgID == orgID && a.Status == entities.AssessmentStatusDraft {
			return copyOf(a), nil
		}
	}
	return nil, nil
}

func (r *RiskAssessmentRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.RiskAssessment, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.RiskAssessment
	for _, a := range r.s.assessments {
		if a.OrgID != orgID {
			continue
		}
		if params.Status != "" && string(a.Status) != params.Status {
			continue
		}
		out = append(out, copyOf(a))
	}
	items, total := paginate(out, func(a *entities.RiskAssessment) time.Time { return a.CreatedAt }, params)
	return items, total, nil
}

func (r *RiskAssessmentRepository) ListApproved(ctx context.Context, orgID uuid.UUID) ([]*entities.RiskAssessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entities.RiskAssessment{}
	for _, a := range r.s.assessments {
		if a.OrgID == orgID && a.Status == entities.AssessmentStatusApproved {
			out = append(out, copyOf(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *RiskAssessmentRepository) UpdateIfStatus(ctx context.Context, a *entities.RiskAssessment, expected entities.AssessmentStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.assessments[a.ID]
	if !ok || stored.OrgID != a.OrgID || stored.Status != expected {
		return false, nil
	}
	r.s.stamp(nil, &a.UpdatedAt)
	next := copyOf(a)
	next.Factors = nil
	r.s.assessments[a.ID] = next
	return true, nil
}

func (r *RiskAssessmentRepository) isDraft(orgID, assessmentID uuid.UUID) bool {
	a, ok := r.s.assessments[assessmentID]
	return ok && a.OrgID == orgID && a.Status == entities.AssessmentStatusDraft
}

func (r *RiskAssessmentRepository) AddFactor(ctx context.Context, orgID uuid.UUID, f *entities.RiskFactor) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.isDraft(orgID, f.AssessmentID) {
		return false, nil
	}
	r.s.stamp(&f.CreatedAt, &f.UpdatedAt)
	r.s.factors[f.ID] = copyOf(f)
	return true, nil
}

func (r *RiskAssessmentRepository) UpdateFactor(ctx context.Context, orgID uuid.UUID, f *entities.RiskFactor) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.factors[f.ID]
	if !ok || stored.AssessmentID != f.AssessmentID || !r.isDraft(orgID, f.AssessmentID) {
		return false, nil
	}
	stored.FactorNameAR = f.FactorNameAR
	stored.InherentRiskScore = f.InherentRiskScore
	stored.ControlEffectiveness = f.ControlEffectiveness
	stored.ResidualRiskScore = f.ResidualRiskScore
	stored.Notes = f.Notes
	r.s.stamp(nil, &stored.UpdatedAt)
	f.UpdatedAt = stored.UpdatedAt
	return true, nil
}

func (r *RiskAssessmentRepository) GetFactor(ctx context.Context, assessmentID, factorID uuid.UUID) (*entities.RiskFactor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.factors[factorID]
	if !ok || f.AssessmentID != assessmentID {
		return nil, nil
	}
	return copyOf(f), nil
}

func (r *RiskAssessmentRepository) ListFactors(ctx context.Context, assessmentID uuid.UUID) ([]*entities.RiskFactor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.factorsOf(assessmentID), nil
}

func (r *RiskAssessmentRepository) factorsOf(assessmentID uuid.UUID) []*entities.RiskFactor {
	out := []*entities.RiskFactor{}
	for _, f := range r.s.factors {
		if f.AssessmentID == assessmentID {
			out = append(out, copyOf(f))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *RiskAssessmentRepository) Rescore(ctx context.Context, orgID, id uuid.UUID) (*entities.RiskAssessment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.isDraft(orgID, id) {
		return nil, nil
	}
	stored := r.s.assessments[id]
	out := copyOf(stored)
	out.Factors = r.factorsOf(id)
	out.Rescore()
	stored.OverallRiskScore, stored.OverallRiskLevel = out.OverallRiskScore, out.OverallRiskLevel
	r.s.stamp(nil, &stored.UpdatedAt)
	out.UpdatedAt = stored.UpdatedAt
	return out, nil
}
