// Package store is the in-memory relational engine behind tabsync.
//
// Every table has the same column shape:
//   - id: TEXT PRIMARY KEY, at most one row per id
//   - ordering_key: INTEGER, present only on ordered tables
//   - payload: BLOB, the entity's serialized state, never interpreted here
//
// Tables live in a private in-memory SQLite database. The whole database is
// exported as one image ([Store.ExportImage]) and restored from one
// ([Store.ImportImage]); images are SQLite database files, so an image fully
// determines engine state.
//
// # Bookkeeping
//
// A reserved _meta table travels inside every image. It holds the commit
// generation (bumped by every [Store.Apply]) and the origin id of the last
// writer.
//
// # Connection Model
//
// An in-memory SQLite database exists per connection, so the pool is pinned
// to a single connection. All statements are serialized through it.
//
// # Not Found
//
// Missing rows and unknown tables are not errors: [Store.Get] reports
// ok=false and [Store.Scan] returns an empty slice.
package store
