// Package service contains the application-specific use cases.
//
// ArtifactService implements the cache-or-generate content pipeline: it
// looks an artifact up in the store, generates it through a
// generation.Generator on a miss, and writes the result back. Storage
// failures never fail a request; they degrade to a cache miss or to a
// skipped writeback. Generation failures are returned to the caller.
//
// The service depends on the store and generation interfaces, never on a
// specific backend or provider.
package service
