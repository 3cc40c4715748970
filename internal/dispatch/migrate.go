package dispatch

import (
	"fmt"

	"github.com/JayJeyaruban/arrpc/internal/ir"
)

// Apply runs one migration step on a call. Carried fields keep their values,
// added fields take their type's canonical default. The input is not
// modified.
func Apply(step ir.MigrationStep, call Call) (Call, error) {
	arm, ok := step.Arm(call.Tag)
	if !ok {
		return Call{}, &Error{
			Code:    ErrCodeUnknownVariant,
			Tag:     call.Tag,
			Message: fmt.Sprintf("no variant in shape %s", step.From),
		}
	}

	args := make(ir.IRObject, len(arm.Carried)+len(arm.Defaulted))
	for _, name := range arm.Carried {
		v, ok := call.Args[name]
		if !ok {
			return Call{}, &Error{
				Code:    ErrCodeInvalidArgs,
				Tag:     call.Tag,
				Message: fmt.Sprintf("field %q missing while migrating %s -> %s", name, step.From, step.To),
			}
		}
		args[name] = v
	}
	for _, f := range arm.Defaulted {
		args[f.Name] = ir.DefaultValue(f.Type)
	}
	return Call{Tag: call.Tag, Args: args}, nil
}

// Migrate applies steps in order.
func Migrate(steps []ir.MigrationStep, call Call) (Call, error) {
	for _, step := range steps {
		var err error
		call, err = Apply(step, call)
		if err != nil {
			return Call{}, err
		}
	}
	return call, nil
}
