// Package db is the commit pipeline of tabsync: the only write path into
// the in-memory engine and the durable snapshot.
//
// # Lifecycle
//
//	Uninitialized --Open--> Ready    (snapshot loaded, or fresh tables and an
//	                                  empty snapshot persisted)
//	Uninitialized --Open--> Unready  (engine could not be built; permanent)
//
// Every call on an Unready or closed DB fails with CodeEngineUnavailable.
//
// # Commit
//
// Each write runs, under one mutex:
//
//  1. apply the mutations to the engine (one transaction); on failure stop
//  2. export the whole image, encode it and store it under the snapshot key
//
// and then, only if step 2 succeeded:
//
//  3. notify local subscribers of the table and of "all"
//  4. announce {"type":"DB_UPDATE","table":...} on the bus
//
// A failed step 2 is reported as CodePersistenceFailed. The engine keeps the
// mutated state, which now differs from the stored snapshot; nothing is
// rolled back or retried.
//
// # Remote Announcements
//
// By default a message from another context only notifies local
// subscribers: the engine is not reloaded, so reads keep serving this
// context's own state. With [WithRemoteReload] the context instead enters an
// "applying remote update" mode, reads the stored snapshot, checks it in a
// scratch database and copies it into the existing engine, leaves the mode
// and then notifies. A snapshot that fails the check leaves the engine as it
// was; subscribers are still notified. Reloads never announce, so two
// contexts cannot ping-pong. A snapshot carrying the same generation and
// origin as the local engine is still imported; the reload is only logged
// at Debug instead of Info.
//
// # Concurrent Writers
//
// There is no locking across contexts. The snapshot is whole-database and
// the last Put wins: a context that commits from an older in-memory state
// overwrites changes persisted by another context in between. With reload
// mode enabled, a context that finds a snapshot from another origin at or
// below its own generation logs that its local state is being replaced.
package db
