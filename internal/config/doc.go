// Package config loads the server and mailer settings from a .env file, an
// optional config.yaml and APITASK_* environment variables, applies defaults
// and validates the result.
package config
