// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config.yaml. It provides
// type-safe access to application settings, including the collection
// registry that maps short legal-code identifiers to storage tables.
package config
