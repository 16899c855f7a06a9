package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lockbox/internal/ledger"
)

// AccountOptions holds flags for the fund and balance commands.
type AccountOptions struct {
	*RootOptions
	Identity string
	Amount   uint64
}

// NewFundCommand creates the fund command.
func NewFundCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AccountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Credit an account",
		Long: `Credit an account.

Seeds spendable balance for a deployment. Escrow itself never mints;
create moves funds from the sender into the vault and claim or cancel
moves them back out.

Example:
  lockbox fund --identity alice --amount 1000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFund(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Identity, "identity", "", "account to credit (required)")
	cmd.Flags().Uint64Var(&opts.Amount, "amount", 0, "amount to credit (required)")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

type balanceResult struct {
	Identity string `json:"identity"`
	Balance  uint64 `json:"balance"`
}

func (r balanceResult) String() string {
	return fmt.Sprintf("%s: %d", r.Identity, r.Balance)
}

func runFund(opts *AccountOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts.RootOptions)

	id, err := callerIdentity(opts.Identity)
	if err != nil {
		return err
	}

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.bank.Deposit(ctx, id, opts.Amount); err != nil {
		return WrapExitError(ExitCommandError, "failed to credit account", err)
	}

	balance, err := e.bank.Balance(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read balance", err)
	}

	return f.Success(balanceResult{Identity: opts.Identity, Balance: balance})
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AccountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "balance",
		Short:         "Show an account balance",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Identity, "identity", "", "account to inspect (required)")
	_ = cmd.MarkFlagRequired("identity")

	return cmd
}

func runBalance(opts *AccountOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := formatterFor(cmd, opts.RootOptions)

	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	// Accepts the vault identity too, so operators can audit escrowed funds.
	balance, err := e.bank.Balance(ctx, ledger.Identity(opts.Identity))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read balance", err)
	}

	return f.Success(balanceResult{Identity: opts.Identity, Balance: balance})
}
