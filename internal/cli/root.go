// Package cli implements the relsync command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/relsync/internal/config"
)

// RootOptions holds global flags and the configuration loaded from them.
type RootOptions struct {
	ConfigFile string
	Config     *config.Config
}

// NewRootCommand creates the root command for the relsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "relsync",
		Short: "relsync - relational read and write resolution",
		Long: `Resolve nested queries and synchronize nested mutations against a
relational schema declared in CUE.

Settings come from flags, RELSYNC_* environment variables and relsync.yaml,
in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			setupLogging(cmd.ErrOrStderr(), cfg.Verbose)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./relsync.yaml)")
	flags.String("database", config.DefaultDatabase, "path to SQLite database (:memory: for a private in-memory one)")
	flags.String("schema-dir", config.DefaultSchemaDir, "directory of CUE model declarations")
	flags.String("format", config.DefaultFormat, "output format (json|text)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.String("scope", "", "attribute scope for reads")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewMutateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setupLogging installs the default slog handler: debug level on w when
// verbose, warnings only otherwise.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Config.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Config.Verbose,
	}
}
