package leasing

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/propfolio/backend/internal/domain/shared"
)

type fakeLeaseRepo struct {
	mu     sync.Mutex
	leases map[uuid.UUID]rentals.Lease
}

func newFakeLeaseRepo() *fakeLeaseRepo {
	return &fakeLeaseRepo{leases: make(map[uuid.UUID]rentals.Lease)}
}

func (r *fakeLeaseRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*rentals.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leases[id]
	if !ok || l.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := l
	return &cp, nil
}

func (r *fakeLeaseRepo) FindByNumber(_ context.Context, companyID uuid.UUID, number string) (*rentals.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.leases {
		if l.CompanyID == companyID && l.Number == number {
			cp := l
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeLeaseRepo) FindAll(_ context.Context, companyID uuid.UUID, _ shared.Filter) ([]rentals.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []rentals.Lease
	for _, l := range r.leases {
		if l.CompanyID == companyID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLeaseRepo) FindByProperty(_ context.Context, companyID, propertyID uuid.UUID, _ shared.Filter) ([]rentals.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []rentals.Lease
	for _, l := range r.leases {
		if l.CompanyID == companyID && l.PropertyID != nil && *l.PropertyID == propertyID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLeaseRepo) FindByStatus(_ context.Context, companyID uuid.UUID, status rentals.LeaseStatus, _ shared.Filter) ([]rentals.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []rentals.Lease
	for _, l := range r.leases {
		if l.CompanyID == companyID && l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLeaseRepo) ExistingNumbers(_ context.Context, companyID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.leases {
		if l.CompanyID == companyID {
			out = append(out, l.Number)
		}
	}
	return out, nil
}

func (r *fakeLeaseRepo) NumberExists(_ context.Context, companyID uuid.UUID, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.leases {
		if l.CompanyID == companyID && l.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLeaseRepo) Save(_ context.Context, lease *rentals.Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases[lease.ID] = *lease
	return nil
}

func (r *fakeLeaseRepo) SaveWithLock(_ context.Context, lease *rentals.Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases[lease.ID] = *lease
	return nil
}

func (r *fakeLeaseRepo) Delete(_ context.Context, companyID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.leases[id]; ok && l.CompanyID == companyID {
		delete(r.leases, id)
	}
	return nil
}

func (r *fakeLeaseRepo) Count(_ context.Context, companyID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.leases {
		if l.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

type fakePropertyRepo struct {
	mu         sync.Mutex
	properties map[uuid.UUID]rentals.Property
}

func newFakePropertyRepo() *fakePropertyRepo {
	return &fakePropertyRepo{properties: make(map[uuid.UUID]rentals.Property)}
}

func (r *fakePropertyRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*rentals.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.properties[id]
	if !ok || p.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *fakePropertyRepo) FindByCode(_ context.Context, companyID uuid.UUID, code string) (*rentals.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.properties {
		if p.CompanyID == companyID && p.Code == code {
			cp := p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakePropertyRepo) FindAll(_ context.Context, companyID uuid.UUID, _ shared.Filter) ([]rentals.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []rentals.Property
	for _, p := range r.properties {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePropertyRepo) ExistsByCode(_ context.Context, companyID uuid.UUID, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.properties {
		if p.CompanyID == companyID && p.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePropertyRepo) Save(_ context.Context, property *rentals.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[property.ID] = *property
	return nil
}

func (r *fakePropertyRepo) SaveWithLock(_ context.Context, property *rentals.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[property.ID] = *property
	return nil
}

func (r *fakePropertyRepo) Delete(_ context.Context, companyID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.properties[id]; ok && p.CompanyID == companyID {
		delete(r.properties, id)
	}
	return nil
}

func (r *fakePropertyRepo) Count(_ context.Context, companyID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.properties {
		if p.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

var (
	_ rentals.LeaseRepository    = (*fakeLeaseRepo)(nil)
	_ rentals.PropertyRepository = (*fakePropertyRepo)(nil)
)
