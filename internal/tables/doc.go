// Package tables is the typed API over the local data engine.
//
// Each table is a [Collection] of one entity type from package model, stored
// as JSON payload rows. Time-ordered tables ([Ordered]) keep the entity
// timestamp in the row's ordering key and read newest first with cursor
// pagination. Map-shaped tables ([Mapped]) also return all rows keyed by
// id. Pair tables ([Relationships], [VIP]) derive the row id from two
// foreign ids with [model.PairKey].
//
// Every write goes through the DB commit pipeline; reads serve from the
// in-memory engine.
package tables
