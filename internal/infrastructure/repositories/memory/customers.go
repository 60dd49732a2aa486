package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/scoring"
)

type OrganizationRepository struct{ s *Store }

// Put inserts or replaces an organisation.
func (r *OrganizationRepository) Put(org *entities.Organization) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&org.CreatedAt, &org.UpdatedAt)
	r.s.orgs[org.ID] = copyOf(org)
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyOf(r.s.orgs[id]), nil
}

func (r *OrganizationRepository) Update(ctx context.Context, org *entities.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orgs[org.ID]; !ok {
		return nil
	}
	r.s.stamp(nil, &org.UpdatedAt)
	r.s.orgs[org.ID] = copyOf(org)
	return nil
}

func (r *OrganizationRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.s.orgs))
	for id := range r.s.orgs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *OrganizationRepository) Ensure(ctx context.Context, org *entities.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orgs[org.ID]; ok {
		return nil
	}
	r.s.stamp(&org.CreatedAt, &org.UpdatedAt)
	r.s.orgs[org.ID] = copyOf(org)
	return nil
}

type CustomerRepository struct{ s *Store }

func (r *CustomerRepository) Create(ctx context.Context, c *entities.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertCustomer(c)
}

// insertCustomer enforces the per-organisation identifier keys. Callers hold mu.
func (s *Store) insertCustomer(c *entities.Customer) error {
	for _, existing := range s.customers {
		if existing.OrgID != c.OrgID {
			continue
		}
		if c.NationalID != "" && existing.NationalID == c.NationalID {
			return repositories.ErrUniqueViolation
		}
		if c.CommercialRecord != "" && existing.CommercialRecord == c.CommercialRecord {
			return repositories.ErrUniqueViolation
		}
	}
	s.stamp(&c.CreatedAt, &c.UpdatedAt)
	s.customers[c.ID] = copyOf(c)
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.get(orgID, id), nil
}

func (r *CustomerRepository) get(orgID, id uuid.UUID) *entities.Customer {
	c, ok := r.s.customers[id]
	if !ok || c.OrgID != orgID {
		return nil
	}
	return copyOf(c)
}

func (r *CustomerRepository) Update(ctx context.Context, c *entities.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.get(c.OrgID, c.ID) == nil {
		return nil
	}
	r.s.stamp(nil, &c.UpdatedAt)
	r.s.customers[c.ID] = copyOf(c)
	return nil
}

func (r *CustomerRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.Customer, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.Customer
	for _, c := range r.s.customers {
		if c.OrgID != orgID {
			continue
		}
		if params.Type != "" && string(c.CustomerType) != params.Type {
			continue
		}
		if params.RiskLevel != "" && string(c.RiskLevel) != params.RiskLevel {
			continue
		}
		if params.Search != "" && !containsFold(c.DisplayName(), params.Search) &&
			!containsFold(c.NationalID, params.Search) && !containsFold(c.CommercialRecord, params.Search) {
			continue
		}
		out = append(out, copyOf(c))
	}
	items, total := paginate(out, func(c *entities.Customer) time.Time { return c.CreatedAt }, params)
	return items, total, nil
}

func (r *CustomerRepository) Stats(ctx context.Context, orgID uuid.UUID) (*entities.CustomerStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stats := &entities.CustomerStats{}
	for _, c := range r.s.customers {
		if c.OrgID != orgID {
			continue
		}
		switch c.RiskLevel {
		case scoring.LevelLow:
			stats.Low++
		case scoring.LevelMedium:
			stats.Medium++
		case scoring.LevelHigh:
			stats.High++
		case scoring.LevelCritical:
			stats.Critical++
		}
	}
	return stats, nil
}

func (r *CustomerRepository) Count(ctx context.Context, orgID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, c := range r.s.customers {
		if c.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

// ListForScreening returns customers never screened or last screened before the cutoff.
func (r *CustomerRepository) ListForScreening(ctx context.Context, orgID uuid.UUID, screenedBefore time.Time, limit int) ([]*entities.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	last := make(map[uuid.UUID]time.Time)
	for _, sr := range r.s.screenings {
		if sr.OrgID == orgID && sr.ScreenedAt.After(last[sr.CustomerID]) {
			last[sr.CustomerID] = sr.ScreenedAt
		}
	}
	var out []*entities.Customer
	for _, c := range r.s.customers {
		if c.OrgID != orgID {
			continue
		}
		if at, ok := last[c.ID]; ok && !at.Before(screenedBefore) {
			continue
		}
		out = append(out, copyOf(c))
	}
	items, _ := paginate(out, func(c *entities.Customer) time.Time { return c.CreatedAt }, entities.ListParams{Page: 1, PageSize: limit})
	return items, nil
}

func (r *CustomerRepository) UpdateScreeningFlags(ctx context.Context, orgID, id uuid.UUID, pepStatus, sanctionsStatus *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok || c.OrgID != orgID {
		return nil
	}
	if pepStatus != nil {
		c.PEPStatus = *pepStatus
	}
	if sanctionsStatus != nil {
		c.SanctionsStatus = *sanctionsStatus
	}
	r.s.stamp(nil, &c.UpdatedAt)
	return nil
}

type KYCRequestRepository struct{ s *Store }

func (r *KYCRequestRepository) Create(ctx context.Context, req *entities.KYCRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&req.CreatedAt, &req.UpdatedAt)
	r.s.kycRequests[req.ID] = copyOf(req)
	return nil
}

func (r *KYCRequestRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.KYCRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.kycRequests[id]
	if !ok || req.OrgID != orgID {
		return nil, nil
	}
	return copyOf(req), nil
}

func (r *KYCRequestRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*entities.KYCRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, req := range r.s.kycRequests {
		if req.TokenHash == tokenHash {
			return copyOf(req), nil
		}
	}
	return nil, nil
}

func (r *KYCRequestRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.KYCRequest, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.KYCRequest
	for _, req := range r.s.kycRequests {
		if req.OrgID != orgID {
			continue
		}
		if params.Status != "" && string(req.Status) != params.Status {
			continue
		}
		if params.Search != "" && !containsFold(req.DisplayName(), params.Search) && !containsFold(req.RecipientEmail, params.Search) {
			continue
		}
		out = append(out, copyOf(req))
	}
	items, total := paginate(out, func(r *entities.KYCRequest) time.Time { return r.CreatedAt }, params)
	return items, total, nil
}

func (r *KYCRequestRepository) UpdateIfStatus(ctx context.Context, req *entities.KYCRequest, expected entities.KYCStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.updateIfStatus(req, expected), nil
}

func (r *KYCRequestRepository) Approve(ctx context.Context, req *entities.KYCRequest, customer *entities.Customer) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.kycRequests[req.ID]
	if !ok || stored.OrgID != req.OrgID || stored.Status != entities.KYCStatusPending {
		return false, nil
	}
	if err := r.s.insertCustomer(customer); err != nil {
		return false, err
	}
	return r.updateIfStatus(req, entities.KYCStatusPending), nil
}

func (r *KYCRequestRepository) updateIfStatus(req *entities.KYCRequest, expected entities.KYCStatus) bool {
	stored, ok := r.s.kycRequests[req.ID]
	if !ok || stored.OrgID != req.OrgID || stored.Status != expected {
		return false
	}
	r.s.stamp(nil, &req.UpdatedAt)
	r.s.kycRequests[req.ID] = copyOf(req)
	return true
}

type TransactionRepository struct{ s *Store }

func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&tx.CreatedAt, nil)
	r.s.transactions[tx.ID] = copyOf(tx)
	return nil
}

func (r *TransactionRepository) ListByCustomer(ctx context.Context, orgID, customerID uuid.UUID, params entities.ListParams) ([]*entities.Transaction, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.Transaction
	for _, tx := range r.s.transactions {
		if tx.OrgID != orgID || tx.CustomerID != customerID {
			continue
		}
		if params.Type != "" && string(tx.TxType) != params.Type {
			continue
		}
		if params.Status != "" && string(tx.Status) != params.Status {
			continue
		}
		out = append(out, copyOf(tx))
	}
	items, total := paginate(out, func(t *entities.Transaction) time.Time { return t.TxDate }, params)
	return items, total, nil
}
