// Package walletguardrails gates every outbound payment behind hard spend
// limits: per-transaction cap, rolling daily cap recomputed from the audit
// log, and an optional destination allowlist. The whole check-send-record
// sequence runs under one exclusive lock so concurrent callers cannot
// jointly exceed the daily cap.
package walletguardrails
