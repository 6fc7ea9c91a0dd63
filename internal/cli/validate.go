package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relsync/internal/compiler"
	"github.com/roach88/relsync/internal/graph"
	"github.com/roach88/relsync/internal/ir"
)

// ValidationIssue is one schema problem.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                    `json:"valid"`
	Models   []string                `json:"models,omitempty"`
	Errors   []ValidationIssue       `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [schema-dir]",
		Short: "Validate the CUE schema and its relation graph",
		Long: `Compile every model declared in the schema directory, check each
declaration, then build the relation graph so relation targets, keys and
aliases are verified too. Write-order cycles are reported as warnings.

Exit codes:
  0 - Schema valid
  1 - Schema invalid
  2 - Command error (directory not found, no CUE files)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Config.SchemaDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, errs := compiler.LoadSchema(dir, compiler.LoadModeCollectAll)
	if loaded == nil {
		var loadErr *compiler.LoadError
		if errors.As(errs[0], &loadErr) {
			formatter.Error(loadErr.Code, loadErr.Message, nil)
		}
		return WrapExitError(ExitCommandError, "failed to load schema", errs[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := ValidationResult{Warnings: loaded.Warnings}
	for _, m := range loaded.Models {
		result.Models = append(result.Models, m.Name)
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, issueOf(err))
	}

	// Graph checks need every model to compile first.
	if len(result.Errors) == 0 {
		if _, err := graph.New(loaded.Models); err != nil {
			result.Errors = append(result.Errors, issueOf(err))
		}
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		msg := fmt.Sprintf("%d validation error(s)", len(result.Errors))
		if err := formatter.Failure("E_INVALID_SCHEMA", msg, validationText(result), result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return formatter.Success(validationText(result), result)
}

func issueOf(err error) ValidationIssue {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			issue.Line = loadErr.Pos.Line()
		}
		return issue
	}
	var cfgErr *ir.ConfigError
	if errors.As(err, &cfgErr) {
		return ValidationIssue{Code: string(cfgErr.Code), Message: cfgErr.Error()}
	}
	return ValidationIssue{Code: compiler.ErrCodeGeneric, Message: err.Error()}
}

func validationText(r ValidationResult) string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "✓ Schema valid: %d model(s)", len(r.Models))
	} else {
		fmt.Fprintf(&b, "✗ Schema invalid: %d error(s)", len(r.Errors))
		for _, e := range r.Errors {
			if e.Line > 0 {
				fmt.Fprintf(&b, "\n  [%s] line %d: %s", e.Code, e.Line, e.Message)
			} else {
				fmt.Fprintf(&b, "\n  [%s] %s", e.Code, e.Message)
			}
		}
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "\n  warning: %s", w.Message)
	}
	return b.String()
}
