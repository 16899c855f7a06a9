package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lockbox/internal/escrow"
	"github.com/roach88/lockbox/internal/ledger"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	As       string
	To       string
	Amount   uint64
	Duration uint64
	Key      string
	Value    uint64
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Lock funds into a new conditional payment",
		Long: `Lock funds into a new conditional payment.

The amount moves from the sender's account into the escrow vault. The
recipient can claim it once the logical clock reaches the release tick
and the named oracle feed reports at least the required value. Until
then the sender can cancel for a full refund.

Example:
  lockbox create --as alice --to bob --amount 500 --duration 10 --key weather/rainfall --value 50`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "caller identity, becomes the sender (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "recipient identity (required)")
	cmd.Flags().Uint64Var(&opts.Amount, "amount", 0, "amount to lock (required)")
	cmd.Flags().Uint64Var(&opts.Duration, "duration", 0, "ticks until the payment becomes claimable (required)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "oracle feed key gating the claim (required)")
	cmd.Flags().Uint64Var(&opts.Value, "value", 0, "minimum feed value required to claim")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("duration")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

type createResult struct {
	PaymentID uint64 `json:"payment_id"`
}

func (r createResult) String() string {
	return fmt.Sprintf("Created payment %d", r.PaymentID)
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
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

	id, err := e.machine.CreatePayment(ctx, caller, escrow.CreateParams{
		Recipient:     ledger.Identity(opts.To),
		Amount:        opts.Amount,
		LockDuration:  opts.Duration,
		ConditionKey:  opts.Key,
		RequiredValue: opts.Value,
	})
	if err != nil {
		return reportDomainError(f, err)
	}

	return f.Success(createResult{PaymentID: id})
}

// ClaimOptions holds flags for the claim and cancel commands.
type ClaimOptions struct {
	*RootOptions
	As string
	ID uint64
}

// NewClaimCommand creates the claim command.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClaimOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim a matured conditional payment",
		Long: `Claim a matured conditional payment.

Only the recipient can claim, and only once the release tick has passed
and the oracle feed meets the required value. On success the locked
amount moves from the vault to the recipient and the payment is
permanently fulfilled.

Example:
  lockbox claim --as bob --id 0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClaim(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "caller identity, must be the recipient (required)")
	cmd.Flags().Uint64Var(&opts.ID, "id", 0, "payment id (required)")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

type outcomeResult struct {
	PaymentID uint64 `json:"payment_id"`
	Outcome   string `json:"outcome"`
}

func (r outcomeResult) String() string {
	return fmt.Sprintf("Payment %d %s", r.PaymentID, r.Outcome)
}

func runClaim(opts *ClaimOptions, cmd *cobra.Command) error {
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

	if err := e.machine.ClaimPayment(ctx, caller, opts.ID); err != nil {
		return reportDomainError(f, err)
	}

	return f.Success(outcomeResult{PaymentID: opts.ID, Outcome: "fulfilled"})
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClaimOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a pending payment and refund the sender",
		Long: `Cancel a pending payment and refund the sender.

Only the sender can cancel, and only while the payment is still pending.
Cancellation is allowed at any tick regardless of the oracle feed.

Example:
  lockbox cancel --as alice --id 0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "caller identity, must be the sender (required)")
	cmd.Flags().Uint64Var(&opts.ID, "id", 0, "payment id (required)")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runCancel(opts *ClaimOptions, cmd *cobra.Command) error {
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

	if err := e.machine.CancelPayment(ctx, caller, opts.ID); err != nil {
		return reportDomainError(f, err)
	}

	return f.Success(outcomeResult{PaymentID: opts.ID, Outcome: "canceled"})
}
