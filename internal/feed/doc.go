// Package feed defines the canonical message shapes delivered by the
// market-data stream: full order book snapshots, incremental updates,
// and the events that carry them tagged with a market id.
package feed
