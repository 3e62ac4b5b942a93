// Package claimdistribution turns one bulk creator-fee claim into pro-rata
// payouts. It owns the claim batch ledger (batches, allocations, volume
// snapshots), the pure allocation math, and the orchestrator that drives
// guarded payments with distribute / dry-run / retry entrypoints.
package claimdistribution
