package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JayJeyaruban/arrpc/internal/compiler"
	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool            `json:"valid"`
	Interfaces  []string        `json:"interfaces,omitempty"`
	Errors      []CLIError      `json:"errors,omitempty"`
	Diagnostics []ir.Diagnostic `json:"diagnostics,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate interface descriptions without writing artifacts",
		Long: `Validate the interface descriptions in a directory.

Checks names, version ordering, version ranges and types, and that every
adjacent pair of versions is reachable by an additive migration. Nothing is
written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	loaded, err := loadSpecs(f, specsDir)
	if err != nil {
		return err
	}

	result, err := ValidateInterfaces(loaded.Interfaces, f)
	if err != nil {
		return err
	}
	if !result.Valid {
		return outputValidationErrors(f, result)
	}

	if f.JSON() {
		return f.Success(result)
	}
	f.Printf("✓ %d interface(s) valid\n", len(result.Interfaces))
	for _, d := range result.Diagnostics {
		f.Printf("  warning [%s] %s: %s\n", d.Code, d.Field, d.Message)
	}
	return nil
}

// ValidateInterfaces compiles each interface in memory and collects every
// validation and migration error across all of them.
func ValidateInterfaces(ifaces []*ir.Interface, f *OutputFormatter) (*ValidationResult, error) {
	result := &ValidationResult{Valid: true}
	for _, iface := range ifaces {
		f.VerboseLog("Validating interface: %s", iface.Name)
		result.Interfaces = append(result.Interfaces, iface.Name)

		c, err := compiler.Compile(iface)
		var buildErr *compiler.BuildError
		switch {
		case errors.As(err, &buildErr):
			result.Valid = false
			result.Errors = append(result.Errors, toCLIErrors([]error{err})...)
		case err != nil:
			return nil, err
		default:
			result.Diagnostics = append(result.Diagnostics, c.Diagnostics...)
		}
	}
	return result, nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(f *OutputFormatter, result *ValidationResult) error {
	if f.JSON() {
		if err := f.Error(result.Errors[0].Code, result.Errors[0].Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, e := range result.Errors {
		fmt.Fprintf(f.Writer, "  %s: %s\n", e.Code, e.Message)
	}
	fmt.Fprintln(f.Writer)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
