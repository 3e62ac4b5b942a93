// Package auditlog owns the append-only ledger of wallet-affecting attempts.
//
// Every send, claim, burn, balance check, and guardrail rejection lands here,
// successful or not. The guardrail service recomputes rolling outflow from
// these rows on every check; entries are never updated or deleted.
package auditlog
