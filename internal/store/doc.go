// Package store defines the persistence contract for cached study artifacts.
// It abstracts the underlying storage from the content pipeline so that the
// service can run on PostgreSQL, SQLite or Firestore without change.
package store
