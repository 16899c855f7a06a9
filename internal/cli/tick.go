package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AdvanceOptions holds flags for the advance command.
type AdvanceOptions struct {
	*RootOptions
	To uint64
}

// NewAdvanceCommand creates the advance command.
func NewAdvanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdvanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Advance the logical clock",
		Long: `Advance the logical clock.

The tick never moves backwards; advancing to the current tick is a
no-op and advancing to an earlier tick is refused.

Example:
  lockbox advance --to 1010`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvance(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.To, "to", 0, "target tick (required)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

type advanceResult struct {
	Tick uint64 `json:"tick"`
}

func (r advanceResult) String() string {
	return fmt.Sprintf("Clock at tick %d", r.Tick)
}

func runAdvance(opts *AdvanceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts.RootOptions)

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.AdvanceTick(ctx, opts.To); err != nil {
		return WrapExitError(ExitCommandError, "failed to advance clock", err)
	}

	return f.Success(advanceResult{Tick: opts.To})
}
