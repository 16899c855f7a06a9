package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lockbox/internal/config"
	"github.com/roach88/lockbox/internal/store"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the escrow database",
		Long: `Initialize the escrow database from the deployment config.

Creates the SQLite database at the configured path, records the contract
owner, and starts the logical clock and payment counter at zero. Running
init again against the same database is a no-op; re-initializing with a
different owner is refused.

Example:
  lockbox init --config lockbox.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}

	return cmd
}

type initResult struct {
	Owner    string `json:"owner"`
	Database string `json:"database"`
}

func (r initResult) String() string {
	return fmt.Sprintf("Initialized %s (owner %s)", r.Database, r.Owner)
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	setupLogging(opts)
	f := formatterFor(cmd, opts)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.Initialize(cmd.Context(), cfg.OwnerIdentity()); err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize database", err)
	}

	return f.Success(initResult{Owner: cfg.Owner, Database: cfg.Database})
}
