package compiler

import (
	"fmt"

	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// CompileMigrations builds one step per adjacent pair of declared versions.
// Every removal across every pair is reported in a single *BuildError.
func CompileMigrations(iface *ir.Interface) ([]ir.MigrationStep, error) {
	m, err := resolve(iface)
	if err != nil {
		return nil, err
	}
	shapes := m.shapes()
	steps, errs := migrations(shapes)
	if len(errs) > 0 {
		return nil, &BuildError{Interface: iface.Name, Errors: errs}
	}
	return steps, nil
}

func (m *model) shapes() []ir.Shape {
	shapes := make([]ir.Shape, len(m.versions))
	for i, v := range m.versions {
		shapes[i] = m.shapeAt(v)
	}
	return shapes
}

func migrations(shapes []ir.Shape) ([]ir.MigrationStep, []ValidationError) {
	steps := []ir.MigrationStep{}
	var errs []ValidationError
	for i := 0; i+1 < len(shapes); i++ {
		step, stepErrs := diffShapes(shapes[i], shapes[i+1])
		errs = append(errs, stepErrs...)
		steps = append(steps, step)
	}
	return steps, errs
}

// diffShapes derives the step from -> to. Operations match by name only;
// renames are not inferred. Every variant of from gets an arm, so the step
// is total over from.
func diffShapes(from, to ir.Shape) (ir.MigrationStep, []ValidationError) {
	step := ir.MigrationStep{From: from.Version, To: to.Version, Arms: []ir.MigrationArm{}}
	var errs []ValidationError

	for _, fv := range from.Variants {
		tv, ok := to.Variant(fv.Tag)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("operations.%s", fv.Operation),
				Message: fmt.Sprintf("operation %q removed between %s and %s, unsupported: operations are append-only", fv.Operation, from.Version, to.Version),
				Code:    ErrOperationRemoved,
			})
			continue
		}

		for _, f := range fv.Fields {
			if _, ok := tv.Field(f.Name); !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("operations.%s.params.%s", fv.Operation, f.Name),
					Message: fmt.Sprintf("argument %q of %q removed between %s and %s, unsupported", f.Name, fv.Operation, from.Version, to.Version),
					Code:    ErrParamRemoved,
				})
			}
		}

		arm := ir.MigrationArm{Tag: fv.Tag, Carried: []string{}, Defaulted: []ir.Field{}}
		for _, f := range tv.Fields {
			if _, ok := fv.Field(f.Name); ok {
				arm.Carried = append(arm.Carried, f.Name)
			} else {
				arm.Defaulted = append(arm.Defaulted, f)
			}
		}
		step.Arms = append(step.Arms, arm)
	}
	return step, errs
}
