// Package store defines the persistence contracts of the task tracker:
// TaskStore, UserStore, CategoryStore and the UnitOfWork that groups them
// into one transaction. Services depend only on these interfaces; the
// PostgreSQL implementation lives in internal/platform/postgres.
package store
