// Package feeclaimer collects accrued creator fees from the external claim
// portal. It supports a single long-lived master wallet and per-recipient
// ephemeral wallets that are funded with just enough for network fees,
// drained after claiming, and retired. Net revenue above the configured
// minimum is handed to the claim distribution module.
package feeclaimer
