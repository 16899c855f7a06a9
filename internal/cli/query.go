package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lockbox/internal/ledger"
)

// QueryOptions holds flags shared by the payment query commands.
type QueryOptions struct {
	*RootOptions
	ID uint64
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a payment record",
		Long: `Show a payment record.

Example:
  lockbox status --id 0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.ID, "id", 0, "payment id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

type statusResult struct {
	PaymentID     uint64 `json:"payment_id"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	LockedAmount  uint64 `json:"locked_amount"`
	ReleaseTick   uint64 `json:"release_tick"`
	ConditionKey  string `json:"condition_key"`
	RequiredValue uint64 `json:"required_value"`
	CreatedTick   uint64 `json:"created_tick"`
	State         string `json:"state"`
}

func (r statusResult) String() string {
	return fmt.Sprintf("Payment %d: %s -> %s, amount %d, releases at tick %d on %s >= %d (%s)",
		r.PaymentID, r.Sender, r.Recipient, r.LockedAmount, r.ReleaseTick, r.ConditionKey, r.RequiredValue, r.State)
}

func recordState(rec ledger.PaymentRecord) string {
	switch {
	case rec.Fulfilled:
		return "fulfilled"
	case rec.Canceled:
		return "canceled"
	default:
		return "pending"
	}
}

func runStatus(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts.RootOptions)

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	rec, err := e.machine.PaymentStatus(ctx, opts.ID)
	if err != nil {
		return reportDomainError(f, err)
	}

	return f.Success(statusResult{
		PaymentID:     rec.ID,
		Sender:        string(rec.Sender),
		Recipient:     string(rec.Recipient),
		LockedAmount:  rec.LockedAmount,
		ReleaseTick:   rec.ReleaseTick,
		ConditionKey:  rec.ConditionKey,
		RequiredValue: rec.RequiredValue,
		CreatedTick:   rec.CreatedTick,
		State:         recordState(rec),
	})
}

// NewClaimableCommand creates the claimable command.
func NewClaimableCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "claimable",
		Short: "Check whether a payment could be claimed right now",
		Long: `Check whether a payment could be claimed right now.

Evaluates the same conditions as claim without mutating anything. A
missing payment is an error; an existing payment whose conditions are
unmet answers false.

Example:
  lockbox claimable --id 0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClaimable(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.ID, "id", 0, "payment id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

type claimableResult struct {
	PaymentID uint64 `json:"payment_id"`
	Claimable bool   `json:"claimable"`
}

func (r claimableResult) String() string {
	if r.Claimable {
		return fmt.Sprintf("Payment %d is claimable", r.PaymentID)
	}
	return fmt.Sprintf("Payment %d is not claimable", r.PaymentID)
}

func runClaimable(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts.RootOptions)

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	ok, err := e.machine.IsClaimable(ctx, opts.ID)
	if err != nil {
		return reportDomainError(f, err)
	}

	return f.Success(claimableResult{PaymentID: opts.ID, Claimable: ok})
}

// OracleQueryOptions holds flags for the oracle command.
type OracleQueryOptions struct {
	*RootOptions
	Key string
}

// NewOracleCommand creates the oracle command.
func NewOracleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OracleQueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "oracle",
		Short:         "Show an oracle feed's latest value",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOracle(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "feed key (required)")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

type oracleResult struct {
	Key         string `json:"key"`
	Reported    bool   `json:"reported"`
	Value       uint64 `json:"value,omitempty"`
	UpdatedTick uint64 `json:"updated_tick,omitempty"`
}

func (r oracleResult) String() string {
	if !r.Reported {
		return fmt.Sprintf("Feed %s has never been reported", r.Key)
	}
	return fmt.Sprintf("Feed %s = %d (updated at tick %d)", r.Key, r.Value, r.UpdatedTick)
}

func runOracle(opts *OracleQueryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts.RootOptions)

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	entry, ok, err := e.machine.OracleValue(ctx, opts.Key)
	if err != nil {
		return reportDomainError(f, err)
	}

	res := oracleResult{Key: opts.Key, Reported: ok}
	if ok {
		res.Value = entry.Value
		res.UpdatedTick = entry.UpdatedTick
	}
	return f.Success(res)
}

// ReporterQueryOptions holds flags for the reporter command.
type ReporterQueryOptions struct {
	*RootOptions
	ID string
}

// NewReporterCommand creates the reporter command.
func NewReporterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReporterQueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "reporter",
		Short:         "Check whether an identity is an authorized reporter",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReporter(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "identity", "", "identity to check (required)")
	_ = cmd.MarkFlagRequired("identity")

	return cmd
}

type reporterResult struct {
	Identity   string `json:"identity"`
	Authorized bool   `json:"authorized"`
}

func (r reporterResult) String() string {
	if r.Authorized {
		return fmt.Sprintf("%s is an authorized reporter", r.Identity)
	}
	return fmt.Sprintf("%s is not an authorized reporter", r.Identity)
}

func runReporter(opts *ReporterQueryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts.RootOptions)

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	ok, err := e.machine.OracleAuthorized(ctx, ledger.Identity(opts.ID))
	if err != nil {
		return reportDomainError(f, err)
	}

	return f.Success(reporterResult{Identity: opts.ID, Authorized: ok})
}

// NewNonceCommand creates the nonce command.
func NewNonceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nonce",
		Short:         "Show the next payment id to be assigned",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNonce(rootOpts, cmd)
		},
	}

	return cmd
}

type nonceResult struct {
	Nonce uint64 `json:"nonce"`
}

func (r nonceResult) String() string {
	return fmt.Sprintf("Next payment id: %d", r.Nonce)
}

func runNonce(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts)

	e, err := openEnv(ctx, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	nonce, err := e.machine.PaymentNonce(ctx)
	if err != nil {
		return reportDomainError(f, err)
	}

	return f.Success(nonceResult{Nonce: nonce})
}
