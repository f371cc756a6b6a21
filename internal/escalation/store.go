package escalation

import "context"

// Store is the persistence interface for escalation records and their
// transition logs. Implementations must return defensive copies and must
// apply Put atomically: a record's status and its logs never land half
// written.
type Store interface {
	Get(ctx context.Context, id string) (*Escalation, bool, error)
	Put(ctx context.Context, e *Escalation) error
	// List returns a consistent snapshot of every escalation. Readers never
	// observe a live, mutating iterator.
	List(ctx context.Context) ([]*Escalation, error)
}
