package oracle

import (
	"context"
	"sync"

	"github.com/supplytrace/backend/internal/domain/shipment"
)

// DispatchedQuery is a query seen by MemoryDispatcher
type DispatchedQuery struct {
	RequestID string
	Query     shipment.VerificationQuery
}

// MemoryDispatcher records queries instead of sending them. Responses are
// delivered by calling the verification callback directly.
type MemoryDispatcher struct {
	mu      sync.Mutex
	queries []DispatchedQuery
	err     error
}

// NewMemoryDispatcher creates an empty MemoryDispatcher
func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

// IssueRequest records the query
func (d *MemoryDispatcher) IssueRequest(_ context.Context, query shipment.VerificationQuery) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.queries = append(d.queries, DispatchedQuery{RequestID: query.RequestID, Query: query})
	return nil
}

// FailWith makes subsequent IssueRequest calls return err; nil restores success
func (d *MemoryDispatcher) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Dispatched returns a copy of the recorded queries in issue order
func (d *MemoryDispatcher) Dispatched() []DispatchedQuery {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DispatchedQuery, len(d.queries))
	copy(out, d.queries)
	return out
}

// Last returns the most recent query
func (d *MemoryDispatcher) Last() (DispatchedQuery, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queries) == 0 {
		return DispatchedQuery{}, false
	}
	return d.queries[len(d.queries)-1], true
}

var _ shipment.VerificationDispatcher = (*MemoryDispatcher)(nil)
