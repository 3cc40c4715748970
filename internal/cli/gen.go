package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JayJeyaruban/arrpc/internal/codegen"
	"github.com/JayJeyaruban/arrpc/internal/compiler"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Interface string
	Package   string
	Output    string
}

// GenResult is the gen command's JSON payload.
type GenResult struct {
	Interface string `json:"interface"`
	Package   string `json:"package"`
	Output    string `json:"output,omitempty"`
	Source    string `json:"source,omitempty"`
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen <specs-dir>",
		Short: "Generate Go dispatch and client code for an interface",
		Long: `Generate Go source for one compiled interface: the service interface,
envelope and per-version types, migration functions, a dispatcher that
requires every operation and a client stub.

Without --output the source is written to stdout.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Interface, "interface", "i", "", "interface to generate (required when several are loaded)")
	cmd.Flags().StringVarP(&opts.Package, "package", "p", "", "Go package name (default derived from the interface name)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write generated source to file")

	return cmd
}

func runGen(opts *GenOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	loaded, err := loadSpecs(f, specsDir)
	if err != nil {
		return err
	}
	iface, err := loaded.Interface(opts.Interface)
	if err != nil {
		return reportErrors(f, ExitCommandError, "Generation failed", toCLIErrors([]error{err}))
	}

	compiled, err := compiler.Compile(iface)
	if err != nil {
		return reportErrors(f, ExitCommandError, "Compilation failed", toCLIErrors([]error{err}))
	}

	pkg := opts.Package
	if pkg == "" {
		pkg = codegen.PackageName(iface.Name)
	}
	f.VerboseLog("Generating %s as package %s", iface.Name, pkg)

	src, err := codegen.Generate(compiled, codegen.Options{Package: pkg})
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeGenerateFailed, err.Error(), nil)
	}

	result := &GenResult{Interface: iface.Name, Package: pkg, Output: opts.Output}
	if opts.Output == "" {
		if f.JSON() {
			result.Source = string(src)
			return f.Success(result)
		}
		_, err := f.Writer.Write(src)
		return err
	}

	if err := writeSource(opts.Output, src); err != nil {
		return f.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
	}
	if f.JSON() {
		return f.Success(result)
	}
	f.Printf("✓ Generated %s (package %s) to %s\n", iface.Name, pkg, opts.Output)
	return nil
}

func writeSource(path string, src []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, src, 0644)
}
