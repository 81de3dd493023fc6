package core

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IdentifierRegistry hands out unique ids to resource owners and tracks which
// of them are still alive.
type IdentifierRegistry struct {
	mu     sync.Mutex
	owners map[uuid.UUID]interface{}
}

func NewIdentifierRegistry() *IdentifierRegistry {
	return &IdentifierRegistry{owners: make(map[uuid.UUID]interface{})}
}

func (r *IdentifierRegistry) AcquireNewID(owner interface{}) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.owners[id] = owner
	return id
}

func (r *IdentifierRegistry) ReleaseID(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[id]; !ok {
		return fmt.Errorf("identifier '%s': %w", id, ErrResourceReleased)
	}
	delete(r.owners, id)
	return nil
}

func (r *IdentifierRegistry) Owner(id uuid.UUID) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[id]
	return o, ok
}

// Live returns the number of ids acquired and not yet released.
func (r *IdentifierRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}
