// Package compiler turns interface descriptions into compiled artifacts:
// the envelope at the latest version, one shape per declared version and
// the migration steps between adjacent versions.
//
// Compilation is single-threaded, deterministic and side-effect free.
package compiler

import (
	"fmt"

	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// Compile validates iface and produces every artifact for it.
// Validation and migration errors are returned together as a *BuildError.
// Dead-code findings are returned in Compiled.Diagnostics.
func Compile(iface *ir.Interface) (*ir.Compiled, error) {
	m, err := resolve(iface)
	if err != nil {
		return nil, err
	}

	shapes := m.shapes()
	steps, errs := migrations(shapes)
	if len(errs) > 0 {
		return nil, &BuildError{Interface: iface.Name, Errors: errs}
	}

	compiled := &ir.Compiled{
		Interface:   *iface,
		Envelope:    m.envelope(),
		Shapes:      shapes,
		Migrations:  steps,
		Diagnostics: m.diagnostics,
	}
	compiled.Fingerprint, err = ir.InterfaceFingerprint(compiled)
	if err != nil {
		return nil, err
	}
	return compiled, nil
}

// Chain returns the steps taking a value shaped at from up to the latest
// version. An empty from means the latest version, whose chain is empty.
func Chain(c *ir.Compiled, from string) ([]ir.MigrationStep, error) {
	if from == "" {
		return nil, nil
	}
	steps, ok := c.Chain(from)
	if !ok {
		return nil, fmt.Errorf("interface %s does not declare version %q", c.Interface.Name, from)
	}
	return steps, nil
}
