// Package reminder finds pending tasks that expire tomorrow and publishes a
// reminder for each of them.
//
// Scanner performs one pass. Scheduler runs the scanner on a cron schedule,
// one scan at a time, each bounded by a timeout.
package reminder
