// Package archive provides durable storage for completed runs.
//
// Backed by SQLite with WAL mode. Each archived run stores three things:
// the run row (scenario, token, summary counts, canonical snapshot), the
// result ledger rows, and the input/output lineage rows. Reads are keyed
// by run token; tokens are UUIDv7, so token order is creation order.
package archive
