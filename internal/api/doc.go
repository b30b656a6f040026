// Package api implements the HTTP handlers of the task tracker: auth,
// tasks, streaks, categories and user administration. Handlers translate
// between JSON DTOs and the service layer and map service errors to status
// codes with MapErrorToStatusCode.
package api
