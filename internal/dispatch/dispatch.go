// Package dispatch routes calls to handlers using a compiled interface as a
// run-time table. It is the dynamic counterpart of generated dispatchers:
// completeness is asserted when the Dispatcher is built rather than by the
// Go compiler.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/JayJeyaruban/arrpc/internal/ir"
	"github.com/JayJeyaruban/arrpc/rpc"
)

// Call is one decoded envelope variant.
type Call struct {
	Tag  string
	Args ir.IRObject
}

// Handler implements one operation. Args have already been migrated to the
// latest shape. The result must conform to the operation's return type;
// nil is the unit value.
type Handler func(ctx context.Context, call Call) (any, error)

// Dispatcher maps every operation of the envelope to exactly one handler.
// It is read-only after New and safe for concurrent use.
type Dispatcher struct {
	compiled *ir.Compiled
	handlers map[string]Handler // by tag
}

// New builds a dispatcher for compiled. handlers is keyed by operation name
// and must cover every operation active at the latest version, and nothing
// else. All problems are reported together.
func New(compiled *ir.Compiled, handlers map[string]Handler) (*Dispatcher, error) {
	byTag := make(map[string]Handler, len(handlers))
	known := make(map[string]bool, len(compiled.Envelope.Variants))
	var errs []error

	for _, v := range compiled.Envelope.Variants {
		known[v.Operation] = true
		h, ok := handlers[v.Operation]
		if !ok || h == nil {
			errs = append(errs, &Error{
				Code:      ErrCodeMissingHandler,
				Operation: v.Operation,
				Message:   fmt.Sprintf("no handler for operation active at %s", compiled.Envelope.Version),
			})
			continue
		}
		byTag[v.Tag] = h
	}

	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !known[name] {
			errs = append(errs, &Error{
				Code:      ErrCodeUnknownHandler,
				Operation: name,
				Message:   fmt.Sprintf("interface %s has no such operation at %s", compiled.Interface.Name, compiled.Envelope.Version),
			})
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("dispatcher for %s: %w", compiled.Interface.Name, errors.Join(errs...))
	}
	return &Dispatcher{compiled: compiled, handlers: byTag}, nil
}

// Compiled returns the interface the dispatcher serves.
func (d *Dispatcher) Compiled() *ir.Compiled {
	return d.compiled
}

// DispatchCall validates call against the shape of its origin version,
// migrates it to the latest shape and invokes its handler once. An empty
// version means the call is already at the latest version.
func (d *Dispatcher) DispatchCall(ctx context.Context, version string, call Call) (ir.IRValue, error) {
	shape := d.compiled.Envelope.Shape()
	var steps []ir.MigrationStep
	if version != "" {
		var ok bool
		shape, ok = d.compiled.Shape(version)
		if !ok {
			return nil, &Error{
				Code:    ErrCodeUnknownVersion,
				Tag:     call.Tag,
				Message: fmt.Sprintf("interface %s does not declare version %q", d.compiled.Interface.Name, version),
			}
		}
		steps, _ = d.compiled.Chain(version)
	}

	variant, ok := shape.Variant(call.Tag)
	if !ok {
		return nil, &Error{
			Code:    ErrCodeUnknownVariant,
			Tag:     call.Tag,
			Message: fmt.Sprintf("no variant in shape %s", shape.Version),
		}
	}
	if err := checkArgs(variant, call.Args); err != nil {
		return nil, err
	}

	migrated, err := Migrate(steps, call)
	if err != nil {
		return nil, err
	}

	result, err := d.handlers[call.Tag](ctx, migrated)
	if err != nil {
		return nil, err
	}
	return checkResult(d.latestReturns(call.Tag), call.Tag, result)
}

// Dispatch decodes the raw argument object and calls DispatchCall. It makes
// Dispatcher an rpc.Dispatcher. Caller mistakes are reported as
// rpc.KindDecode; handler errors pass through unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, version, tag string, raw json.RawMessage) (any, error) {
	var args ir.IRObject
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &rpc.Error{Kind: rpc.KindDecode, Tag: tag, Message: "arguments are not a valid object", Err: err}
	}

	result, err := d.DispatchCall(ctx, version, Call{Tag: tag, Args: args})
	if err != nil {
		if IsCallError(err) {
			return nil, &rpc.Error{Kind: rpc.KindDecode, Tag: tag, Message: err.Error(), Err: err}
		}
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) latestReturns(tag string) string {
	v, _ := d.compiled.Envelope.Shape().Variant(tag)
	return v.Returns
}

func checkArgs(variant ir.Variant, args ir.IRObject) error {
	for _, f := range variant.Fields {
		v, ok := args[f.Name]
		if !ok {
			return &Error{Code: ErrCodeInvalidArgs, Tag: variant.Tag, Message: fmt.Sprintf("missing field %q", f.Name)}
		}
		if !ir.Conforms(v, f.Type) {
			return &Error{
				Code:    ErrCodeInvalidArgs,
				Tag:     variant.Tag,
				Message: fmt.Sprintf("field %q must be %s, got %s", f.Name, f.Type, ir.TypeOf(v)),
			}
		}
	}
	for _, name := range args.SortedKeys() {
		if _, ok := variant.Field(name); !ok {
			return &Error{Code: ErrCodeInvalidArgs, Tag: variant.Tag, Message: fmt.Sprintf("unknown field %q", name)}
		}
	}
	return nil
}

func checkResult(returns, tag string, result any) (ir.IRValue, error) {
	v, err := ir.FromGo(result)
	if err != nil {
		return nil, &Error{Code: ErrCodeInvalidResult, Tag: tag, Message: err.Error()}
	}
	if !ir.Conforms(v, returns) {
		return nil, &Error{
			Code:    ErrCodeInvalidResult,
			Tag:     tag,
			Message: fmt.Sprintf("result must be %s, got %s", returns, ir.TypeOf(v)),
		}
	}
	return v, nil
}

// ArgType lists the Go types a call argument can be read as.
type ArgType interface {
	int64 | string | bool | ir.IRArray | ir.IRObject
}

// Arg reads a named argument as T.
func Arg[T ArgType](call Call, name string) (T, error) {
	var zero T
	v, ok := call.Args[name]
	if !ok {
		return zero, &Error{Code: ErrCodeInvalidArgs, Tag: call.Tag, Message: fmt.Sprintf("missing field %q", name)}
	}

	var native any
	switch x := v.(type) {
	case ir.IRInt:
		native = int64(x)
	case ir.IRString:
		native = string(x)
	case ir.IRBool:
		native = bool(x)
	case ir.IRArray:
		native = x
	case ir.IRObject:
		native = x
	}
	out, ok := native.(T)
	if !ok {
		return zero, &Error{
			Code:    ErrCodeInvalidArgs,
			Tag:     call.Tag,
			Message: fmt.Sprintf("field %q is %s, not %T", name, ir.TypeOf(v), zero),
		}
	}
	return out, nil
}
