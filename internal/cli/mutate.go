package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relsync/internal/binding"
	"github.com/roach88/relsync/internal/ir"
)

// MutateOptions holds flags for the mutate command.
type MutateOptions struct {
	*RootOptions
	DryRun bool
}

// MutateResult is a sync result with whether it was committed.
type MutateResult struct {
	ir.SyncResult
	Committed bool `json:"committed"`
}

// NewMutateCommand creates the mutate command.
func NewMutateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mutate <request>",
		Short: "Synchronize one insert, update or remove request",
		Long: `Execute a mutate request in one transaction. Nested data is
cascaded through the declared relations. The transaction commits only when
the result carries no errors.

The request is JSON, given inline, as "-" for stdin or as @file.

Exit codes:
  0 - Committed
  1 - Rejected (validation or constraint errors)
  2 - Command error (unknown model, malformed request)

Examples:
  relsync mutate '{"action": "insert", "model": "Order", "data": {"note": "x", "customer": {"name": "Jim"}}}'
  relsync mutate --dry-run @request.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "roll back even when the request succeeds")
	return cmd
}

func runMutate(opts *MutateOptions, doc string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var req ir.MutateRequest
	if err := readDocument(doc, cmd.InOrStdin(), &req); err != nil {
		return WrapExitError(ExitCommandError, "invalid request", err)
	}

	ctx := cmd.Context()
	st, p, err := openPool(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer st.Close()

	var res ir.SyncResult
	committed, err := st.WithTx(ctx, func(tx binding.Tx) (bool, error) {
		var err error
		res, err = p.Sync(ctx, tx, req)
		return err == nil && res.OK() && !opts.DryRun, err
	})
	if err != nil {
		return configFailure(formatter, err)
	}

	out := MutateResult{SyncResult: res, Committed: committed}
	if !res.OK() {
		msg := fmt.Sprintf("%d error(s)", len(res.Errors))
		if err := formatter.Failure("E_REJECTED", msg, prettyJSON(out), out); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "request rejected: "+msg)
	}
	return formatter.Success(prettyJSON(out), out)
}
