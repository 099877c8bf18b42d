package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, orgID, id string) (*Lead, error)
	GetMany(ctx context.Context, orgID string, ids []string) ([]Lead, error)
	ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error)
	Update(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, orgID, id string) error
	// ApplyMerge saves survivor and removes the superseded leads atomically.
	ApplyMerge(ctx context.Context, orgID string, survivor *Lead, removeIDs []string) error
}

// ListLeadsFilter narrows ListByOrg. A zero Limit returns every lead.
type ListLeadsFilter struct {
	Limit  int
	Offset int
	Status Status
}

// InMemoryRepository is a Repository backed by a map, used in tests and local runs.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
	seq   map[string]int
	next  int
	now   func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
		seq:   make(map[string]int),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create validates req and stores a new lead.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lead := req.ToLead(uuid.New().String(), r.now())

	r.mu.Lock()
	r.put(lead)
	r.mu.Unlock()

	return cloneLead(lead), nil
}

// Seed stores fully formed leads as is, keeping their ids and timestamps.
func (r *InMemoryRepository) Seed(leads ...Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range leads {
		r.put(cloneLead(&leads[i]))
	}
}

func (r *InMemoryRepository) put(lead *Lead) {
	if _, ok := r.seq[lead.ID]; !ok {
		r.seq[lead.ID] = r.next
		r.next++
	}
	r.leads[lead.ID] = lead
}

// GetByID retrieves a lead scoped to the org.
func (r *InMemoryRepository) GetByID(ctx context.Context, orgID, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok || lead.OrgID != orgID {
		return nil, ErrLeadNotFound
	}
	return cloneLead(lead), nil
}

// GetMany returns the requested leads in ids order. Any missing id fails the call.
func (r *InMemoryRepository) GetMany(ctx context.Context, orgID string, ids []string) ([]Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Lead, 0, len(ids))
	for _, id := range ids {
		lead, ok := r.leads[id]
		if !ok || lead.OrgID != orgID {
			return nil, ErrLeadNotFound
		}
		out = append(out, *cloneLead(lead))
	}
	return out, nil
}

// ListByOrg returns the org's leads in creation order.
func (r *InMemoryRepository) ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error) {
	r.mu.RLock()
	var matched []*Lead
	for _, lead := range r.leads {
		if lead.OrgID != orgID {
			continue
		}
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		matched = append(matched, cloneLead(lead))
	}
	seq := r.seq
	sort.Slice(matched, func(i, j int) bool {
		return seq[matched[i].ID] < seq[matched[j].ID]
	})
	r.mu.RUnlock()

	if filter.Offset >= len(matched) {
		return []*Lead{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Update replaces a stored lead.
func (r *InMemoryRepository) Update(ctx context.Context, lead *Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.leads[lead.ID]
	if !ok || existing.OrgID != lead.OrgID {
		return ErrLeadNotFound
	}
	updated := cloneLead(lead)
	updated.UpdatedAt = r.now()
	r.leads[lead.ID] = updated
	return nil
}

// Delete removes a lead.
func (r *InMemoryRepository) Delete(ctx context.Context, orgID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.leads[id]
	if !ok || existing.OrgID != orgID {
		return ErrLeadNotFound
	}
	delete(r.leads, id)
	delete(r.seq, id)
	return nil
}

// ApplyMerge updates survivor and deletes removeIDs under one lock.
func (r *InMemoryRepository) ApplyMerge(ctx context.Context, orgID string, survivor *Lead, removeIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.leads[survivor.ID]; !ok || existing.OrgID != orgID {
		return ErrLeadNotFound
	}
	for _, id := range removeIDs {
		if existing, ok := r.leads[id]; !ok || existing.OrgID != orgID {
			return ErrLeadNotFound
		}
	}

	updated := cloneLead(survivor)
	updated.OrgID = orgID
	updated.UpdatedAt = r.now()
	r.leads[survivor.ID] = updated
	for _, id := range removeIDs {
		if id == survivor.ID {
			continue
		}
		delete(r.leads, id)
		delete(r.seq, id)
	}
	return nil
}

func cloneLead(l *Lead) *Lead {
	c := *l
	if l.Tags != nil {
		c.Tags = append([]string(nil), l.Tags...)
	}
	if l.CustomFields != nil {
		c.CustomFields = make(map[string]any, len(l.CustomFields))
		for k, v := range l.CustomFields {
			c.CustomFields[k] = v
		}
	}
	return &c
}
