// Package escrow implements the conditional escrow state machine.
//
// A payment locks a sender's funds until two independent predicates both
// hold: the logical clock has reached the payment's release tick, and the
// oracle feed named by its condition key has reported a value at or above
// its threshold. The machine also governs which identities may report
// feed values.
//
// Every operation is strictly serialized: it validates everything before
// mutating anything, touches at most one payment record and one feed
// entry, and either completes fully or leaves all shared state unchanged.
package escrow
