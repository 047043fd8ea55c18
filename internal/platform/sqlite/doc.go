// Package sqlite provides a single-file implementation of store.ArtifactStore
// on top of the pure-Go modernc.org/sqlite driver, for local development and
// small deployments.
package sqlite
