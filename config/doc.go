// Package config loads runtime configuration for the dispatch engine from
// environment variables and provides ready-to-use connection configurations
// for the PostgreSQL entity store.
package config
