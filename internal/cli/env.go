package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/lockbox/internal/bank"
	"github.com/roach88/lockbox/internal/config"
	"github.com/roach88/lockbox/internal/escrow"
	"github.com/roach88/lockbox/internal/ledger"
	"github.com/roach88/lockbox/internal/store"
)

// env bundles the opened deployment: config, store, bank, and the escrow
// machine wired over them. Commands open it, act, and Close it.
type env struct {
	cfg     *config.Config
	store   *store.Store
	bank    *bank.Bank
	machine *escrow.Machine
}

// openEnv loads the config, opens the database, and assembles the machine.
// Fails with a command error when the database has never been initialized
// (no owner recorded); run `lockbox init` first.
func openEnv(ctx context.Context, opts *RootOptions) (*env, error) {
	setupLogging(opts)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	owner, err := st.Owner(ctx)
	if err != nil {
		st.Close()
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewExitError(ExitCommandError, "database not initialized, run `lockbox init` first")
		}
		return nil, WrapExitError(ExitCommandError, "failed to read owner", err)
	}

	lastSeq, err := st.LastSeq(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read audit log position", err)
	}

	b := bank.New(st)
	machine := escrow.New(st, b, escrow.StoreTicks{Store: st}, owner,
		escrow.WithLimits(cfg.LedgerLimits()),
		escrow.WithSequence(escrow.NewSequenceAt(lastSeq)),
	)

	return &env{cfg: cfg, store: st, bank: b, machine: machine}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// setupLogging configures the default slog handler from the verbose flag.
// Logs go to stderr so JSON output on stdout stays parseable.
func setupLogging(opts *RootOptions) {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// formatterFor builds an OutputFormatter bound to the command's writers.
func formatterFor(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// callerIdentity validates the --as flag value.
func callerIdentity(as string) (ledger.Identity, error) {
	id := ledger.Identity(as)
	if !id.Valid() {
		return "", NewExitError(ExitCommandError, "--as must name a valid identity")
	}
	return id, nil
}
