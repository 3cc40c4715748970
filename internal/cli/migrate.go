package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JayJeyaruban/arrpc/internal/compiler"
	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Interface string
	From      string
}

// MigrationPlan is the chain of steps from one version to the latest.
type MigrationPlan struct {
	Interface string        `json:"interface"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Steps     []StepSummary `json:"steps"`
}

// StepSummary describes one migration step.
type StepSummary struct {
	From     string       `json:"from"`
	To       string       `json:"to"`
	Identity bool         `json:"identity"`
	Arms     []ArmSummary `json:"arms"`
}

// ArmSummary describes how one variant is carried across a step.
type ArmSummary struct {
	Tag       string            `json:"tag"`
	Carried   []string          `json:"carried"`
	Defaulted map[string]string `json:"defaulted,omitempty"` // field -> default as JSON
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate <specs-dir>",
		Short: "Show the migration chain from a version to the latest",
		Long: `Show how calls made at an older version are upgraded to the latest
shape: which fields are carried and which are filled with defaults at each
step.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Interface, "interface", "i", "", "interface to inspect (required when several are loaded)")
	cmd.Flags().StringVar(&opts.From, "from", "", "version the calls were made at")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runMigrate(opts *MigrateOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	loaded, err := loadSpecs(f, specsDir)
	if err != nil {
		return err
	}
	iface, err := loaded.Interface(opts.Interface)
	if err != nil {
		return reportErrors(f, ExitCommandError, "Migration lookup failed", toCLIErrors([]error{err}))
	}

	compiled, err := compiler.Compile(iface)
	if err != nil {
		return reportErrors(f, ExitCommandError, "Compilation failed", toCLIErrors([]error{err}))
	}

	steps, err := compiler.Chain(compiled, opts.From)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeUnknownVersion, err.Error(), compiled.Interface.Versions)
	}

	plan, err := buildPlan(compiled, opts.From, steps)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if f.JSON() {
		return f.Success(plan)
	}
	printPlan(f, plan)
	return nil
}

func buildPlan(c *ir.Compiled, from string, steps []ir.MigrationStep) (*MigrationPlan, error) {
	plan := &MigrationPlan{
		Interface: c.Interface.Name,
		From:      from,
		To:        c.Envelope.Version,
		Steps:     make([]StepSummary, 0, len(steps)),
	}
	for _, step := range steps {
		s := StepSummary{From: step.From, To: step.To, Identity: step.Identity()}
		for _, arm := range step.Arms {
			a := ArmSummary{Tag: arm.Tag, Carried: arm.Carried}
			for _, field := range arm.Defaulted {
				def, err := ir.MarshalValue(ir.DefaultValue(field.Type))
				if err != nil {
					return nil, err
				}
				if a.Defaulted == nil {
					a.Defaulted = make(map[string]string)
				}
				a.Defaulted[field.Name] = string(def)
			}
			s.Arms = append(s.Arms, a)
		}
		plan.Steps = append(plan.Steps, s)
	}
	return plan, nil
}

func printPlan(f *OutputFormatter, plan *MigrationPlan) {
	if len(plan.Steps) == 0 {
		f.Printf("%s %s is the latest version; no migration needed\n", plan.Interface, plan.From)
		return
	}
	f.Printf("%s %s -> %s: %d step(s)\n\n", plan.Interface, plan.From, plan.To, len(plan.Steps))
	for _, s := range plan.Steps {
		if s.Identity {
			f.Printf("  %s -> %s (identity)\n", s.From, s.To)
			continue
		}
		f.Printf("  %s -> %s\n", s.From, s.To)
		for _, a := range s.Arms {
			f.Printf("    %s: carried [%s]", a.Tag, strings.Join(a.Carried, ", "))
			if len(a.Defaulted) > 0 {
				f.Printf(" defaulted [%s]", formatDefaults(a))
			}
			f.Printf("\n")
		}
	}
}

func formatDefaults(a ArmSummary) string {
	parts := make([]string, 0, len(a.Defaulted))
	for _, name := range slices.Sorted(maps.Keys(a.Defaulted)) {
		parts = append(parts, fmt.Sprintf("%s=%s", name, a.Defaulted[name]))
	}
	return strings.Join(parts, ", ")
}
