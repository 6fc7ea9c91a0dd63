package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/relsync/internal/ir"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <model> [query]",
		Short: "Resolve a query against one model",
		Long: `Resolve a query (filters, attributes, include, pagination, order,
count) against a model and print the resulting rows. The query is JSON,
given inline, as "-" for stdin or as @file. The --scope flag selects the
attribute scope.

Examples:
  relsync query Order '{"filters": {"customer": {"name": "jim"}}, "include": {"items": true}}'
  relsync query Customer --scope public '{"count": true}'
  relsync query Order @query.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := "{}"
			if len(args) == 2 {
				doc = args[1]
			}
			return runQuery(rootOpts, args[0], doc, cmd)
		},
	}
}

func runQuery(opts *RootOptions, model, doc string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var q ir.Query
	if err := readDocument(doc, cmd.InOrStdin(), &q); err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	st, p, err := openPool(cmd.Context(), opts.Config)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := p.Resolve(cmd.Context(), st.DB(), model, opts.Config.Scope, q)
	if err != nil {
		return configFailure(formatter, err)
	}
	formatter.VerboseLog("%d row(s)", len(res.Data))
	return formatter.Success(prettyJSON(res), res)
}

// configFailure reports a configuration error from the pool and maps it to
// ExitCommandError; any other error is returned as is.
func configFailure(formatter *OutputFormatter, err error) error {
	code, ok := ir.ConfigErrorCodeOf(err)
	if !ok {
		return err
	}
	formatter.Error(string(code), err.Error(), nil)
	return WrapExitError(ExitCommandError, "request rejected", err)
}
