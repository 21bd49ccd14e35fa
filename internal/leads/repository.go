package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage. Create performs a
// single write and returns the row as the store recorded it.
type Repository interface {
	Create(ctx context.Context, sub *Submission, meta Metadata) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
}

// InMemoryRepository keeps leads in process memory. It is used for local
// development and tests; it plays the store's role of assigning ids.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
	now   func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
		now:   time.Now,
	}
}

// Create stores a new lead in memory
func (r *InMemoryRepository) Create(ctx context.Context, sub *Submission, meta Metadata) (*Lead, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: "insert", Err: err}
	}

	lead := newLead(sub, meta)
	lead.ID = uuid.New().String()
	lead.CreatedAt = r.now().UTC()

	stored := lead
	r.mu.Lock()
	r.leads[lead.ID] = &stored
	r.mu.Unlock()

	return &lead, nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	out := *lead
	return &out, nil
}

// Len reports how many leads are stored.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leads)
}
