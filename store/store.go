// store/store.go

// Package store defines the pluggable persistence boundary for ACL entries
// and ships three implementations: in-memory (reference), Redis, and Neo4j.
package store

import (
	"context"

	"github.com/dev-mohitbeniwal/guardian/model"
)

// Query selects ACL entries by object and/or subject. A nil field matches
// any value. The zero Query matches every entry.
type Query struct {
	Object  *model.ObjectID
	Subject *model.SubjectID
}

// Matches reports whether an entry satisfies the query.
func (q Query) Matches(entry model.ACLEntry) bool {
	if q.Object != nil && *q.Object != entry.Object {
		return false
	}
	if q.Subject != nil && *q.Subject != entry.Subject {
		return false
	}
	return true
}

// ACLStore holds the durable set of grants. Implementations must be safe
// for concurrent use; the service handles requests in parallel.
type ACLStore interface {
	// Put inserts an entry. It returns true if the entry was newly
	// created, false if the identical triple already existed.
	Put(ctx context.Context, entry model.ACLEntry) (bool, error)

	// Delete removes the triple. It returns true if an entry existed
	// and was removed.
	Delete(ctx context.Context, object model.ObjectID, subject model.SubjectID, permission string) (bool, error)

	// Search returns the entries matching the query, ordered by
	// (object, subject, permission).
	Search(ctx context.Context, query Query) ([]model.ACLEntry, error)
}
