package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lockbox/internal/ledger"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	As    string
	Key   string
	Value uint64
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report an oracle feed value",
		Long: `Report an oracle feed value.

Only identities the owner has authorized may report. A report overwrites
the feed's previous value unconditionally; no history is kept.

Example:
  lockbox report --as oracle-1 --key weather/rainfall --value 55`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "caller identity, must be an authorized reporter (required)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "feed key (required)")
	cmd.Flags().Uint64Var(&opts.Value, "value", 0, "reported value")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

type reportResult struct {
	Key   string `json:"key"`
	Value uint64 `json:"value"`
}

func (r reportResult) String() string {
	return fmt.Sprintf("Feed %s = %d", r.Key, r.Value)
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts.RootOptions)

	caller, err := callerIdentity(opts.As)
	if err != nil {
		return err
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.machine.ReportValue(ctx, caller, opts.Key, opts.Value); err != nil {
		return reportDomainError(f, err)
	}

	return f.Success(reportResult{Key: opts.Key, Value: opts.Value})
}

// AuthorizeOptions holds flags for the authorize command.
type AuthorizeOptions struct {
	*RootOptions
	As     string
	Target string
}

// NewAuthorizeCommand creates the authorize command.
func NewAuthorizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuthorizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Authorize an identity to report oracle values",
		Long: `Authorize an identity to report oracle values.

Only the contract owner may grant authorization. Grants are idempotent
and permanent; there is no revocation.

Example:
  lockbox authorize --as owner --target oracle-1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthorize(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "caller identity, must be the owner (required)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "identity to authorize (required)")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

type authorizeResult struct {
	Reporter string `json:"reporter"`
}

func (r authorizeResult) String() string {
	return fmt.Sprintf("Authorized reporter %s", r.Reporter)
}

func runAuthorize(opts *AuthorizeOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts.RootOptions)

	caller, err := callerIdentity(opts.As)
	if err != nil {
		return err
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.machine.AddAuthorizedReporter(ctx, caller, ledger.Identity(opts.Target)); err != nil {
		return reportDomainError(f, err)
	}

	return f.Success(authorizeResult{Reporter: opts.Target})
}
