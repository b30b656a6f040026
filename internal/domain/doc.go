// Package domain contains the core business entities of the task tracker:
// users, tasks and categories, together with their validation rules and the
// calendar-date helpers every other layer relies on. It is independent of
// any storage or delivery mechanism.
package domain
