package compiler

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/JayJeyaruban/arrpc/internal/constraint"
	"github.com/JayJeyaruban/arrpc/internal/ir"
	"github.com/JayJeyaruban/arrpc/internal/naming"
)

// identPattern accepts names usable as Go identifiers after case conversion.
var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Validate checks an interface description against schema rules.
// Returns all errors found (does not fail-fast). Migration errors (E210,
// E211) are not detected here; they come from Compile.
func Validate(iface *ir.Interface) []ValidationError {
	var errs []ValidationError

	// E201: interface name
	if !identPattern.MatchString(iface.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("invalid interface name %q: must be an identifier", iface.Name),
			Code:    ErrInvalidName,
		})
	}

	errs = append(errs, validateVersions(iface.Versions)...)

	opNames := make(map[string]bool)
	tags := make(map[string]string)
	for i, op := range iface.Operations {
		field := fmt.Sprintf("operations[%d]", i)

		// E201: operation name
		if !identPattern.MatchString(op.Name) {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("invalid operation name %q: must be an identifier", op.Name),
				Code:    ErrInvalidName,
			})
		}

		// E205: duplicate operation
		if opNames[op.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate operation name: %q", op.Name),
				Code:    ErrDuplicateName,
			})
		} else if tag := naming.Pascal(op.Name); tag != "" {
			// E209: distinct names, same discriminant
			if other, ok := tags[tag]; ok {
				errs = append(errs, ValidationError{
					Field:   field + ".name",
					Message: fmt.Sprintf("operations %q and %q both encode as tag %q", other, op.Name, tag),
					Code:    ErrTagCollision,
				})
			}
			tags[tag] = op.Name
		}
		opNames[op.Name] = true

		// E207/E208: return type
		ret := op.ReturnType()
		if isFloatType(ret) {
			errs = append(errs, ValidationError{
				Field:   field + ".returns",
				Message: fmt.Sprintf("float return type forbidden for operation %q, use int instead", op.Name),
				Code:    ErrFloatTypeForbidden,
			})
		} else if !ir.ValidReturnTypes[ret] {
			errs = append(errs, ValidationError{
				Field:   field + ".returns",
				Message: fmt.Sprintf("invalid return type %q for operation %q", ret, op.Name),
				Code:    ErrInvalidReturnType,
			})
		}

		errs = append(errs, validateRanges(op.Versions, field+".versions")...)

		paramNames := make(map[string]bool)
		for j, p := range op.Params {
			pfield := fmt.Sprintf("%s.params[%d]", field, j)

			if !identPattern.MatchString(p.Name) {
				errs = append(errs, ValidationError{
					Field:   pfield + ".name",
					Message: fmt.Sprintf("invalid parameter name %q: must be an identifier", p.Name),
					Code:    ErrInvalidName,
				})
			}
			if paramNames[p.Name] {
				errs = append(errs, ValidationError{
					Field:   pfield + ".name",
					Message: fmt.Sprintf("duplicate parameter name %q in operation %q", p.Name, op.Name),
					Code:    ErrDuplicateName,
				})
			}
			paramNames[p.Name] = true

			errs = append(errs, validateParamType(p.Type, pfield+".type", p.Name)...)
			errs = append(errs, validateRanges(p.Versions, pfield+".versions")...)
		}
	}

	return errs
}

// validateVersions reports E202 for an empty list and E203 for every
// malformed or out-of-order entry.
func validateVersions(versions []string) []ValidationError {
	if len(versions) == 0 {
		return []ValidationError{{
			Field:   "versions",
			Message: "at least one version is required",
			Code:    ErrNoVersions,
		}}
	}

	_, parseErrs := constraint.ParseVersions(versions)
	errs := make([]ValidationError, 0, len(parseErrs))
	for _, err := range parseErrs {
		field := "versions"
		var ve *constraint.VersionError
		var oe *constraint.OrderError
		switch {
		case errors.As(err, &ve):
			field = fmt.Sprintf("versions[%d]", ve.Index)
		case errors.As(err, &oe):
			field = fmt.Sprintf("versions[%d]", oe.Index)
		}
		errs = append(errs, ValidationError{
			Field:   field,
			Message: err.Error(),
			Code:    ErrVersionOrder,
		})
	}
	return errs
}

// validateRanges reports E204 for each unparsable range expression.
func validateRanges(exprs []string, field string) []ValidationError {
	var errs []ValidationError
	for i, expr := range exprs {
		if _, err := constraint.ParseSet([]string{expr}); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: err.Error(),
				Code:    ErrInvalidRange,
			})
		}
	}
	return errs
}

// validateParamType reports E208 for floats and E206 for anything else
// outside the parameter type set.
func validateParamType(typ, field, name string) []ValidationError {
	if isFloatType(typ) {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("float type forbidden for parameter %q, use int instead", name),
			Code:    ErrFloatTypeForbidden,
		}}
	}
	if !ir.ValidParamTypes[typ] {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("invalid type %q for parameter %q", typ, name),
			Code:    ErrInvalidParamType,
		}}
	}
	return nil
}

// isFloatType checks if a type string represents a float type.
func isFloatType(t string) bool {
	floatTypes := map[string]bool{
		"float":   true,
		"float32": true,
		"float64": true,
		"number":  true,
		"double":  true,
	}
	return floatTypes[t]
}
