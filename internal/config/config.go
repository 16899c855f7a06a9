// Package config loads lockbox deployment configuration from a CUE file
// and validates it against an embedded schema. The config fixes the
// contract-owner identity, the database location, and the payment
// creation limits at deployment time.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/lockbox/internal/ledger"
)

// schemaCUE constrains a config file and supplies defaults. Unified with
// the user's file before decoding, so a missing limits block falls back
// to the defaults and an ill-typed field fails validation with a CUE
// position.
const schemaCUE = `
owner:    string & !=""
database: string & !="" | *"lockbox.db"

limits: {
	min_amount:        int & >0 | *1
	max_amount:        int & >0 | *1000000000
	max_lock_duration: int & >0 | *1000000
}
`

// Config is the decoded deployment configuration.
type Config struct {
	Owner    string `json:"owner"`
	Database string `json:"database"`
	Limits   Limits `json:"limits"`
}

// Limits mirrors ledger.Limits in config form.
type Limits struct {
	MinAmount       uint64 `json:"min_amount"`
	MaxAmount       uint64 `json:"max_amount"`
	MaxLockDuration uint64 `json:"max_lock_duration"`
}

// Load reads and validates a CUE config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE config bytes against the embedded schema and
// decodes them. filename is used only for error positions.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile config: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// check enforces the constraints CUE types cannot express.
func (c *Config) check() error {
	if !ledger.Identity(c.Owner).WellFormedExternal() {
		return fmt.Errorf("config: owner %q is not a well-formed external identity", c.Owner)
	}
	if c.Limits.MaxAmount < c.Limits.MinAmount {
		return fmt.Errorf("config: max_amount %d below min_amount %d", c.Limits.MaxAmount, c.Limits.MinAmount)
	}
	return nil
}

// OwnerIdentity returns the owner as a ledger identity.
func (c *Config) OwnerIdentity() ledger.Identity {
	return ledger.Identity(c.Owner)
}

// LedgerLimits converts the config limits to the ledger form.
func (c *Config) LedgerLimits() ledger.Limits {
	return ledger.Limits{
		MinAmount:       c.Limits.MinAmount,
		MaxAmount:       c.Limits.MaxAmount,
		MaxLockDuration: c.Limits.MaxLockDuration,
	}
}
