// Package codegen emits Go source for a compiled interface: the service
// interface, the envelope and per-version shape types, migration functions,
// a dispatcher and a client stub.
//
// The generated dispatcher takes a Service, so a server missing any
// operation fails to compile.
package codegen

import (
	"fmt"
	"go/format"
	"go/token"
	"strings"

	"github.com/JayJeyaruban/arrpc/internal/ir"
	"github.com/JayJeyaruban/arrpc/internal/naming"
)

// RPCImportPath is the runtime package imported by generated code.
const RPCImportPath = "github.com/JayJeyaruban/arrpc/rpc"

// Options controls generation.
type Options struct {
	// Package is the Go package name of the output. Empty derives it from
	// the interface name.
	Package string
}

// GenerateError reports an interface that cannot be expressed in Go, such
// as two names that map to the same identifier.
type GenerateError struct {
	Interface string
	Message   string
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generate %s: %s", e.Interface, e.Message)
}

// Generate returns gofmt'ed Go source for compiled.
func Generate(compiled *ir.Compiled, opts Options) ([]byte, error) {
	g, err := newGenerator(compiled, opts)
	if err != nil {
		return nil, err
	}
	g.emit()

	src, err := format.Source(g.buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generate %s: formatting output: %w", compiled.Interface.Name, err)
	}
	return src, nil
}

// PackageName derives a Go package name from an interface name.
func PackageName(iface string) string {
	return strings.ReplaceAll(strings.ToLower(naming.Snake(iface)), "_", "")
}

// goField is one parameter as it appears in generated code.
type goField struct {
	Wire    string // JSON field name
	Name    string // exported struct field
	Ident   string // method parameter
	Type    string // Go type
	Default string // Go literal of the canonical default
}

type goVariant struct {
	Tag     string
	Method  string
	Fields  []goField
	Returns string // Go type, empty for unit
}

type goShape struct {
	Version  string
	Prefix   string // type name prefix, empty for the latest shape
	Marker   string // sealing method
	CallType string // sealed interface name
	Variants []goVariant
}

// TypeName returns the struct name of a variant in this shape.
func (s goShape) TypeName(v goVariant) string {
	return s.Prefix + v.Tag
}

// Variant looks up a variant by tag.
func (s goShape) Variant(tag string) (goVariant, bool) {
	for _, v := range s.Variants {
		if v.Tag == tag {
			return v, true
		}
	}
	return goVariant{}, false
}

// goTypes maps description types to Go types.
var goTypes = map[string]string{
	ir.TypeString: "string",
	ir.TypeInt:    "int64",
	ir.TypeBool:   "bool",
	ir.TypeArray:  "[]any",
	ir.TypeObject: "map[string]any",
	ir.TypeUnit:   "",
}

var goDefaults = map[string]string{
	ir.TypeString: `""`,
	ir.TypeInt:    "0",
	ir.TypeBool:   "false",
	ir.TypeArray:  "[]any{}",
	ir.TypeObject: "map[string]any{}",
}

// reservedLocals are identifiers generated methods already use.
var reservedLocals = map[string]bool{
	"ctx": true, "out": true, "err": true, "cl": true, "d": true, "c": true,
	"bytes": true, "context": true, "json": true, "fmt": true, "rpc": true,
}

// tagMethod names the exported method every call type carries.
const tagMethod = "ArrpcTag"

func localIdent(name string) string {
	id := naming.Camel(name)
	if token.IsKeyword(id) || reservedLocals[id] {
		return id + "_"
	}
	return id
}

// versionIdent turns a semantic version into an identifier fragment:
// "1.0.0-rc.1" becomes "V1_0_0_rc_1".
func versionIdent(version string) string {
	var b strings.Builder
	b.WriteByte('V')
	for _, r := range version {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
