// Package store persists the escrow ledger in SQLite: payment records,
// oracle feed entries, reporter authorizations, bank account balances,
// scalar state (payment nonce, owner, current tick), and the
// content-addressed transition audit log.
//
// The store is deliberately dumb: it never applies defaults (absent
// reporter rows surface as not-found, not false) and never enforces
// transition rules. All escrow semantics live in package escrow.
package store
