// Package book implements the in-memory order book state engine: the
// sorted price ladder for each side, snapshot and delta application
// with sequence handling, and the derived read-only queries (best
// bid/ask, spread, depth, cumulative volume).
//
// All prices and sizes are exact decimals. A Book is not safe for
// concurrent use on its own; the registry serializes access per market.
package book
