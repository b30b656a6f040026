// Package service contains the application use cases: the task lifecycle with
// its completion transition and streak scoring, user registration and
// authentication, the streak read path and category lookup.
//
// Services receive the caller's user id as an explicit argument and never read
// identity from the context. They depend on the contracts in internal/store and
// internal/notify, never on a concrete database or broker.
//
// Error handling:
//   - expected conditions are returned as sentinels (store.ErrTaskNotFound,
//     ErrNotOwned, domain.ErrValidation, ...) so the API layer can map them
//     with errors.Is;
//   - unexpected failures are wrapped in ServiceError.
package service
