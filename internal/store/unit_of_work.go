package store

import "context"

// Repositories is the set of stores bound to one transaction.
type Repositories struct {
	Tasks      TaskStore
	Users      UserStore
	Categories CategoryStore
}

// UnitOfWork runs a function against stores that share one transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
