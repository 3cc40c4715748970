package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JayJeyaruban/arrpc/internal/compiler"
	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
	Strict bool
}

// InterfaceSummary describes one compiled interface.
type InterfaceSummary struct {
	Name        string          `json:"name"`
	Latest      string          `json:"latest"`
	Versions    []string        `json:"versions"`
	Operations  []string        `json:"operations"`
	Migrations  int             `json:"migrations"`
	Fingerprint string          `json:"fingerprint"`
	Diagnostics []ir.Diagnostic `json:"diagnostics,omitempty"`
}

// CompilationResult is the compile command's JSON payload.
type CompilationResult struct {
	Interfaces []InterfaceSummary `json:"interfaces"`
	Output     string             `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile interface descriptions into canonical artifacts",
		Long: `Compile the CUE and YAML interface descriptions in a directory.

Each interface is validated, its per-version shapes, envelope and migration
steps are computed, and a summary is printed. With --output the compiled
artifacts are written as canonical JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write compiled artifacts to file")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat diagnostics (dead code) as failures")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	compiled, err := loadAndCompile(f, specsDir)
	if err != nil {
		return err
	}

	result := &CompilationResult{Output: opts.Output}
	diagnostics := 0
	for _, c := range compiled {
		result.Interfaces = append(result.Interfaces, summarize(c))
		diagnostics += len(c.Diagnostics)
	}

	if opts.Output != "" {
		if err := writeArtifacts(compiled, opts.Output); err != nil {
			return f.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if opts.Strict && diagnostics > 0 {
		return reportDiagnostics(f, result)
	}

	if f.JSON() {
		return f.Success(result)
	}
	f.Printf("✓ Compiled %d interface(s)\n\n", len(result.Interfaces))
	for _, s := range result.Interfaces {
		printSummary(f, s)
	}
	if opts.Output != "" {
		f.Printf("Wrote canonical artifacts to %s\n", opts.Output)
	}
	return nil
}

func summarize(c *ir.Compiled) InterfaceSummary {
	s := InterfaceSummary{
		Name:        c.Interface.Name,
		Latest:      c.Envelope.Version,
		Versions:    c.Interface.Versions,
		Operations:  make([]string, len(c.Envelope.Variants)),
		Migrations:  len(c.Migrations),
		Fingerprint: c.Fingerprint,
		Diagnostics: c.Diagnostics,
	}
	for i, v := range c.Envelope.Variants {
		s.Operations[i] = v.Tag
	}
	return s
}

func printSummary(f *OutputFormatter, s InterfaceSummary) {
	f.Printf("  %s %s (versions %s)\n", s.Name, s.Latest, strings.Join(s.Versions, ", "))
	f.Printf("    operations: %s\n", strings.Join(s.Operations, ", "))
	f.Printf("    migration steps: %d\n", s.Migrations)
	f.Printf("    fingerprint: %s\n", s.Fingerprint)
	for _, d := range s.Diagnostics {
		f.Printf("    warning [%s] %s: %s\n", d.Code, d.Field, d.Message)
	}
	f.Printf("\n")
}

func reportDiagnostics(f *OutputFormatter, result *CompilationResult) error {
	var details []CLIError
	for _, s := range result.Interfaces {
		for _, d := range s.Diagnostics {
			details = append(details, CLIError{Code: d.Code, Message: fmt.Sprintf("%s: %s: %s", s.Name, d.Field, d.Message)})
		}
	}
	return reportErrors(f, ExitFailure, "Strict compilation failed", details)
}

// writeArtifacts writes one canonical artifact, or an array of them when
// several interfaces were compiled.
func writeArtifacts(compiled []*ir.Compiled, filename string) error {
	var v any = compiled
	if len(compiled) == 1 {
		v = compiled[0]
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(data, '\n'), 0644)
}

// loadAndCompile loads every description in specsDir and compiles it,
// reporting all load and build errors at once.
func loadAndCompile(f *OutputFormatter, specsDir string) ([]*ir.Compiled, error) {
	loaded, err := loadSpecs(f, specsDir)
	if err != nil {
		return nil, err
	}

	var compiled []*ir.Compiled
	var errs []error
	for _, iface := range loaded.Interfaces {
		f.VerboseLog("Compiling interface: %s (%s)", iface.Name, loaded.Sources[iface.Name])
		c, err := compiler.Compile(iface)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		compiled = append(compiled, c)
	}
	if len(errs) > 0 {
		return nil, reportErrors(f, ExitCommandError, "Compilation failed", toCLIErrors(errs))
	}
	return compiled, nil
}

func loadSpecs(f *OutputFormatter, specsDir string) (*LoadResult, error) {
	loaded, errs := LoadInterfaces(specsDir, LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, reportErrors(f, ExitCommandError, "Loading failed", toCLIErrors(errs))
	}
	f.VerboseLog("Found %d CUE file(s) and %d YAML file(s) in %s",
		len(loaded.CUEFiles), len(loaded.YAMLFiles), specsDir)
	return loaded, nil
}

// toCLIErrors flattens load and build errors into reportable entries.
func toCLIErrors(errs []error) []CLIError {
	var out []CLIError
	for _, err := range errs {
		var buildErr *compiler.BuildError
		var loadErr *LoadError
		switch {
		case errors.As(err, &buildErr):
			for _, ve := range buildErr.Errors {
				out = append(out, CLIError{
					Code:    ve.Code,
					Message: fmt.Sprintf("%s: %s: %s", buildErr.Interface, ve.Field, ve.Message),
				})
			}
		case errors.As(err, &loadErr):
			msg := loadErr.Message
			if loadErr.Pos.IsValid() {
				msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
			}
			out = append(out, CLIError{Code: loadErr.Code, Message: msg})
		default:
			out = append(out, CLIError{Code: ErrCodeGeneric, Message: err.Error()})
		}
	}
	return out
}

// reportErrors prints every entry and returns an ExitError carrying exit.
func reportErrors(f *OutputFormatter, exit int, headline string, errs []CLIError) error {
	if len(errs) == 0 {
		return nil
	}
	if f.JSON() {
		if err := f.Error(errs[0].Code, headline, errs); err != nil {
			return err
		}
		return NewExitError(exit, fmt.Sprintf("%s with %d error(s)", strings.ToLower(headline), len(errs)))
	}

	fmt.Fprintf(f.Writer, "✗ %s\n\n", headline)
	for _, e := range errs {
		fmt.Fprintf(f.Writer, "  %s: %s\n", e.Code, e.Message)
	}
	fmt.Fprintln(f.Writer)
	return NewExitError(exit, fmt.Sprintf("%s with %d error(s)", strings.ToLower(headline), len(errs)))
}
