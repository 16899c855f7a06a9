package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainTransition is the domain-separation prefix for transition IDs.
// The version suffix allows a future algorithm migration without
// ambiguity against already-stored hashes.
const DomainTransition = "lockbox/transition/v1"

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain || 0x00 || data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TransitionID computes the content-addressed ID for a transition.
// Stable given the same inputs, so a stored audit log can be re-verified
// by recomputation (see store.VerifyTransitions).
//
// The payment id and feed key are carried inside detail by the machine,
// so the hash covers trace token, op, caller, tick, seq, and detail.
func TransitionID(t Transition) (string, error) {
	obj := map[string]any{
		"trace_token": t.TraceToken,
		"op":          t.Op,
		"caller":      t.Caller,
		"tick":        t.Tick,
		"seq":         t.Seq,
		"detail":      t.Detail,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TransitionID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainTransition, canonical), nil
}
