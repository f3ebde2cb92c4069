// Package registry owns the set of books, one per market id. The
// ingestion path mutates books through Apply calls serialized per
// market; readers receive copy-on-write clones, never a live book.
// Update notifications are published onto subscriber channels after
// the write lock is released, so a slow consumer cannot stall
// ingestion.
package registry
