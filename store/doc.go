// Package store persists quietroom domain records through the database
// abstraction layer.
//
// All query text is canonical: positional `?` markers, rewritten by the
// database layer for whichever backend is configured. Stores therefore run
// unmodified against both backends; the only dialect-aware calls are the
// timestamp bind/scan helpers the database package provides.
//
// Multi-statement writes go through WithinTransaction so counters stay
// consistent with the rows they count, and so the embedded backend can
// serialize them with other writers.
package store
