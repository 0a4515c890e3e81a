// Package config loads trailstore settings from a TOML file, a .env file and
// TRAILSTORE_* environment variables, in increasing precedence.
package config
