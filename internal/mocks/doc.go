// Package mocks provides shared test doubles for the store, notification and
// auth contracts.
//
// The store mocks are small in-memory implementations: by default they keep
// state the way a database would, so service tests can assert on outcomes
// rather than on call sequences. Every method can be overridden with its Fn
// field:
//
//	tasks := mocks.NewMockTaskStore()
//	tasks.DeleteFn = func(ctx context.Context, id uuid.UUID) error {
//	    return errors.New("connection reset")
//	}
//
// TestifyMockUserStore is the testify/mock flavour for tests that assert on
// exact interactions.
package mocks
