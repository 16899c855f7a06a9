// Package ledger defines the escrow domain model: identities, payment
// records, oracle feed entries, the error taxonomy shared by every
// operation, and the canonical JSON / content-addressed hashing used by
// the transition audit log.
//
// The package is purely data and validation helpers. All state transitions
// live in package escrow; all persistence lives in package store.
package ledger
