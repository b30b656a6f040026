// Package postgres implements the internal/store contracts on PostgreSQL
// through database/sql and the pgx stdlib driver. It also embeds the schema
// migrations, applied with goose at startup.
package postgres
