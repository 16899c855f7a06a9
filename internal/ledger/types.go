package ledger

import (
	"strings"
	"unicode/utf8"
)

// Identity names an account that can hold or move value. Callers arrive
// already authenticated; an Identity is an opaque, stable name, not a key.
type Identity string

const (
	// MaxIdentityLen bounds identity length in bytes.
	MaxIdentityLen = 64

	// MaxFeedKeyLen bounds oracle feed key length in bytes.
	MaxFeedKeyLen = 128

	// VaultNamespace is the reserved identity namespace for escrow-internal
	// accounts. External parties may never hold an identity under it.
	VaultNamespace = "vault:"

	// Vault is the escrow-held account. Deposits move sender -> Vault on
	// create; Vault -> recipient on claim; Vault -> sender on cancel.
	Vault Identity = "vault:escrow"
)

// Valid reports whether the identity is well-formed: non-empty, within
// MaxIdentityLen bytes, and valid UTF-8.
func (id Identity) Valid() bool {
	return len(id) > 0 && len(id) <= MaxIdentityLen && utf8.ValidString(string(id))
}

// Internal reports whether the identity lives in the reserved vault
// namespace.
func (id Identity) Internal() bool {
	return strings.HasPrefix(string(id), VaultNamespace)
}

// WellFormedExternal reports whether the identity may appear as a payment
// party or authorized reporter: valid and outside the vault namespace.
func (id Identity) WellFormedExternal() bool {
	return id.Valid() && !id.Internal()
}

// ValidFeedKey reports whether key may name an oracle feed:
// non-empty and within MaxFeedKeyLen bytes.
func ValidFeedKey(key string) bool {
	return len(key) > 0 && len(key) <= MaxFeedKeyLen
}

// Limits holds the deployment-configurable bounds on payment creation.
type Limits struct {
	// MinAmount and MaxAmount bound the locked amount, inclusive.
	MinAmount uint64
	MaxAmount uint64

	// MaxLockDuration bounds lock_duration; the minimum is always 1.
	MaxLockDuration uint64
}

// DefaultLimits returns the bounds used when no deployment config
// overrides them.
func DefaultLimits() Limits {
	return Limits{
		MinAmount:       1,
		MaxAmount:       1_000_000_000,
		MaxLockDuration: 1_000_000,
	}
}

// PaymentRecord is one escrowed payment.
//
// All fields except the two terminal flags are immutable after creation.
// Fulfilled and Canceled are mutually exclusive; once either is set the
// record is terminal and admits no further mutation.
type PaymentRecord struct {
	ID            uint64
	Sender        Identity
	Recipient     Identity
	LockedAmount  uint64
	ReleaseTick   uint64 // CreatedTick + lock_duration
	ConditionKey  string // references a feed key; need not exist yet
	RequiredValue uint64 // feed value must meet or exceed this
	CreatedTick   uint64
	Fulfilled     bool
	Canceled      bool
}

// Terminal reports whether the record has reached a terminal state.
func (r PaymentRecord) Terminal() bool {
	return r.Fulfilled || r.Canceled
}

// FeedEntry is the latest value reported for one oracle feed key.
// Each report overwrites both fields; no history is retained.
type FeedEntry struct {
	Key         string
	Value       uint64
	UpdatedTick uint64
}

// Op names a state transition for the audit log.
type Op string

const (
	OpCreate    Op = "create_payment"
	OpReport    Op = "report_value"
	OpClaim     Op = "claim_payment"
	OpCancel    Op = "cancel_payment"
	OpAuthorize Op = "add_authorized_reporter"
)

// Transition is one successful state transition, recorded for audit.
//
// ID is content-addressed (see TransitionID) so a stored log can be
// re-verified offline. Transitions are supplementary observability: the
// escrow core never reads them back to decide anything.
type Transition struct {
	ID         string
	TraceToken string // UUIDv7 correlating the external request
	Op         Op
	Caller     Identity
	PaymentID  *uint64 // nil for ops not touching a payment
	FeedKey    string  // empty for ops not touching a feed
	Tick       uint64
	Seq        int64          // machine-local audit sequence
	Detail     map[string]any // canonical-JSON-able op detail
}
