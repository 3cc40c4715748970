package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JayJeyaruban/arrpc/internal/ir"
	"github.com/JayJeyaruban/arrpc/internal/registry"
)

// DefaultRegistryPath is used when --db is not given.
const DefaultRegistryPath = "arrpc.db"

// RegistryOptions holds flags shared by publish and check.
type RegistryOptions struct {
	*RootOptions
	DBPath string
}

// RegistryEntry reports one interface against the registry. For publish,
// Published lists only the versions frozen by this run.
type RegistryEntry struct {
	Interface  string               `json:"interface"`
	Published  []string             `json:"published,omitempty"`
	Pending    []string             `json:"pending,omitempty"`
	Violations []registry.Violation `json:"violations,omitempty"`
}

// RegistryResult is the JSON payload of publish and check.
type RegistryResult struct {
	DB         string          `json:"db"`
	Interfaces []RegistryEntry `json:"interfaces"`
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegistryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish <specs-dir>",
		Short: "Freeze the declared versions in the registry",
		Long: `Compile the interfaces in a directory and record every version not yet
published. Published versions are frozen: a release that changes or drops
one, or inserts a new version before it, is refused and nothing is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", DefaultRegistryPath, "path to registry database")

	return cmd
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegistryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <specs-dir>",
		Short: "Check descriptions against published versions",
		Long: `Compile the interfaces in a directory and compare them with the registry
without writing. Exits 1 if publishing would be refused.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", DefaultRegistryPath, "path to registry database")

	return cmd
}

func runPublish(opts *RegistryOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	compiled, err := loadAndCompile(f, specsDir)
	if err != nil {
		return err
	}

	reg, err := registry.Open(opts.DBPath)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeRegistry, err.Error(), opts.DBPath)
	}
	defer reg.Close()

	result, err := checkAll(ctx, reg, compiled)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeRegistry, err.Error(), opts.DBPath)
	}
	result.DB = opts.DBPath
	if conflicts := violations(result); len(conflicts) > 0 {
		return reportErrors(f, ExitFailure, "Publish refused", conflicts)
	}

	for i, c := range compiled {
		f.VerboseLog("Publishing %s", c.Interface.Name)
		added, err := reg.Publish(ctx, c)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeRegistry, err.Error(), c.Interface.Name)
		}
		entry := &result.Interfaces[i]
		entry.Published = nil
		for _, p := range added {
			entry.Published = append(entry.Published, p.Version)
		}
		entry.Pending = nil
	}

	if f.JSON() {
		return f.Success(result)
	}
	for _, e := range result.Interfaces {
		if len(e.Published) == 0 {
			f.Printf("  %s: up to date\n", e.Interface)
			continue
		}
		f.Printf("✓ Published %s %v\n", e.Interface, e.Published)
	}
	return nil
}

func runCheck(opts *RegistryOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	compiled, err := loadAndCompile(f, specsDir)
	if err != nil {
		return err
	}

	reg, err := registry.Open(opts.DBPath)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeRegistry, err.Error(), opts.DBPath)
	}
	defer reg.Close()

	result, err := checkAll(ctx, reg, compiled)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeRegistry, err.Error(), opts.DBPath)
	}
	result.DB = opts.DBPath
	if conflicts := violations(result); len(conflicts) > 0 {
		return reportErrors(f, ExitFailure, "Check failed", conflicts)
	}

	if f.JSON() {
		return f.Success(result)
	}
	for _, e := range result.Interfaces {
		f.Printf("✓ %s: %d published, %d pending %v\n", e.Interface, len(e.Published), len(e.Pending), e.Pending)
	}
	return nil
}

// checkAll compares every compiled interface with its published history.
func checkAll(ctx context.Context, reg *registry.Registry, compiled []*ir.Compiled) (*RegistryResult, error) {
	result := &RegistryResult{}
	for _, c := range compiled {
		pub, err := reg.Published(ctx, c.Interface.Name)
		if err != nil {
			return nil, err
		}
		vs, err := reg.Check(ctx, c)
		if err != nil {
			return nil, err
		}

		entry := RegistryEntry{Interface: c.Interface.Name, Violations: vs}
		done := make(map[string]bool, len(pub))
		for _, p := range pub {
			done[p.Version] = true
			entry.Published = append(entry.Published, p.Version)
		}
		for _, v := range c.Interface.Versions {
			if !done[v] {
				entry.Pending = append(entry.Pending, v)
			}
		}
		result.Interfaces = append(result.Interfaces, entry)
	}
	return result, nil
}

func violations(result *RegistryResult) []CLIError {
	var out []CLIError
	for _, e := range result.Interfaces {
		for _, v := range e.Violations {
			out = append(out, CLIError{
				Code:    string(v.Code),
				Message: fmt.Sprintf("%s %s: %s", e.Interface, v.Version, v.Message),
			})
		}
	}
	return out
}
