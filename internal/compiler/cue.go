package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// CompileInterface parses a CUE value into an Interface.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The value should be the interface struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`interface: Math: { versions: ["1.0.0"], operation: add: {...} }`)
//	iface, err := CompileInterface(v.LookupPath(cue.ParsePath("interface.Math")))
//
// Operations keep their CUE declaration order. Parameter and return types
// may be given as type-name strings ("int") or as CUE kinds (int).
func CompileInterface(v cue.Value) (*ir.Interface, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	iface := &ir.Interface{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		iface.Name = labels[len(labels)-1].String()
	}

	versions, err := parseStringList(v, "versions")
	if err != nil {
		return nil, err
	}
	iface.Versions = versions

	iface.Operations, err = parseOperations(v)
	if err != nil {
		return nil, err
	}
	return iface, nil
}

// CompileInterfaces parses every interface under the top-level `interface`
// field of root, collecting all errors.
func CompileInterfaces(root cue.Value) ([]*ir.Interface, []error) {
	ifacesVal := root.LookupPath(cue.ParsePath("interface"))
	if !ifacesVal.Exists() {
		return nil, nil
	}

	iter, err := ifacesVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var out []*ir.Interface
	var errs []error
	for iter.Next() {
		iface, err := CompileInterface(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("interface.%s: %w", iter.Selector(), err))
			continue
		}
		out = append(out, iface)
	}
	return out, errs
}

func parseOperations(v cue.Value) ([]ir.Operation, error) {
	opsVal := v.LookupPath(cue.ParsePath("operation"))
	if !opsVal.Exists() {
		return nil, nil
	}

	iter, err := opsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var ops []ir.Operation
	for iter.Next() {
		name := iter.Selector().String()
		opVal := iter.Value()

		op := ir.Operation{Name: name, Returns: ir.TypeUnit}

		op.Versions, err = parseStringList(opVal, "versions")
		if err != nil {
			return nil, err
		}

		retVal := opVal.LookupPath(cue.ParsePath("returns"))
		if retVal.Exists() {
			op.Returns, err = extractTypeName(retVal, fmt.Sprintf("operation.%s.returns", name))
			if err != nil {
				return nil, err
			}
		}

		op.Params, err = parseParams(opVal, name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseParams(opVal cue.Value, opName string) ([]ir.Param, error) {
	params := []ir.Param{}
	paramsVal := opVal.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return params, nil
	}

	iter, err := paramsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		pv := iter.Value()
		field := fmt.Sprintf("operation.%s.params[%d]", opName, i)

		nameVal := pv.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{Field: field + ".name", Message: "parameter name is required", Pos: pv.Pos()}
		}
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		typeVal := pv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{Field: field + ".type", Message: "parameter type is required", Pos: pv.Pos()}
		}
		typ, err := extractTypeName(typeVal, field+".type")
		if err != nil {
			return nil, err
		}

		versions, err := parseStringList(pv, "versions")
		if err != nil {
			return nil, err
		}

		params = append(params, ir.Param{Name: name, Type: typ, Versions: versions})
	}
	return params, nil
}

// parseStringList reads an optional list of strings at path.
func parseStringList(v cue.Value, path string) ([]string, error) {
	listVal := v.LookupPath(cue.ParsePath(path))
	if !listVal.Exists() {
		return nil, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// extractTypeName converts a concrete type-name string or a CUE kind to a
// type name. Floats are forbidden.
func extractTypeName(v cue.Value, field string) (string, error) {
	if s, err := v.String(); err == nil {
		return s, nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return ir.TypeString, nil
	case cue.IntKind:
		return ir.TypeInt, nil
	case cue.BoolKind:
		return ir.TypeBool, nil
	case cue.ListKind:
		return ir.TypeArray, nil
	case cue.StructKind:
		return ir.TypeObject, nil
	case cue.NullKind:
		return ir.TypeUnit, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   field,
			Message: "float types are forbidden, use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
