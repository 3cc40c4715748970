package compiler

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/JayJeyaruban/arrpc/internal/constraint"
	"github.com/JayJeyaruban/arrpc/internal/ir"
	"github.com/JayJeyaruban/arrpc/internal/naming"
)

// model is a validated interface with every constraint parsed once.
type model struct {
	iface       *ir.Interface
	versions    []*semver.Version
	ops         []modelOp
	diagnostics []ir.Diagnostic
}

type modelOp struct {
	op     ir.Operation
	tag    string
	active constraint.Set
	params []modelParam
}

type modelParam struct {
	param  ir.Param
	active constraint.Set
}

// resolve validates iface and parses its constraints. Operations and
// parameters that no declared version satisfies are dropped with a W201
// diagnostic.
func resolve(iface *ir.Interface) (*model, error) {
	if errs := Validate(iface); len(errs) > 0 {
		return nil, &BuildError{Interface: iface.Name, Errors: errs}
	}

	versions, errs := constraint.ParseVersions(iface.Versions)
	if len(errs) > 0 {
		return nil, fmt.Errorf("resolve %s: %w", iface.Name, errs[0])
	}

	m := &model{iface: iface, versions: versions}
	for i, op := range iface.Operations {
		set, err := constraint.ParseSet(op.Versions)
		if err != nil {
			return nil, fmt.Errorf("resolve %s.%s: %w", iface.Name, op.Name, err)
		}

		// Versions at which the operation exists bound where its params can.
		var live []*semver.Version
		for _, v := range versions {
			if set.Active(v) {
				live = append(live, v)
			}
		}
		if len(live) == 0 {
			m.diagnostics = append(m.diagnostics, ir.Diagnostic{
				Code:    WarnDeadCode,
				Field:   fmt.Sprintf("operations[%d]", i),
				Message: fmt.Sprintf("operation %q is active at no declared version (%s); dropped", op.Name, set),
			})
			continue
		}

		mop := modelOp{op: op, tag: naming.Pascal(op.Name), active: set}
		for j, p := range op.Params {
			pset, err := constraint.ParseSet(p.Versions)
			if err != nil {
				return nil, fmt.Errorf("resolve %s.%s.%s: %w", iface.Name, op.Name, p.Name, err)
			}
			if !pset.Satisfiable(live) {
				m.diagnostics = append(m.diagnostics, ir.Diagnostic{
					Code:    WarnDeadCode,
					Field:   fmt.Sprintf("operations[%d].params[%d]", i, j),
					Message: fmt.Sprintf("parameter %q of %q is active at no version where the operation exists (%s); dropped", p.Name, op.Name, pset),
				})
				continue
			}
			mop.params = append(mop.params, modelParam{param: p, active: pset})
		}
		m.ops = append(m.ops, mop)
	}
	return m, nil
}

// latest returns the maximum declared version.
func (m *model) latest() *semver.Version {
	return constraint.Latest(m.versions)
}

// shapeAt builds the shape of v: every active operation with its active
// parameters, both in declaration order.
func (m *model) shapeAt(v *semver.Version) ir.Shape {
	shape := ir.Shape{Version: v.Original(), Variants: []ir.Variant{}}
	for _, mop := range m.ops {
		if !mop.active.Active(v) {
			continue
		}
		variant := ir.Variant{
			Operation: mop.op.Name,
			Tag:       mop.tag,
			Fields:    []ir.Field{},
			Returns:   mop.op.ReturnType(),
		}
		for _, mp := range mop.params {
			if mp.active.Active(v) {
				variant.Fields = append(variant.Fields, ir.Field{Name: mp.param.Name, Type: mp.param.Type})
			}
		}
		shape.Variants = append(shape.Variants, variant)
	}
	return shape
}

// ShapeAt returns the shape of iface at a declared version.
func ShapeAt(iface *ir.Interface, version string) (ir.Shape, error) {
	m, err := resolve(iface)
	if err != nil {
		return ir.Shape{}, err
	}
	for _, v := range m.versions {
		if v.Original() == version {
			return m.shapeAt(v), nil
		}
	}
	return ir.Shape{}, fmt.Errorf("interface %s does not declare version %q", iface.Name, version)
}
