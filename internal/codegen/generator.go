package codegen

import (
	"bytes"
	"fmt"
	"go/token"
	"strconv"
	"strings"

	"github.com/JayJeyaruban/arrpc/internal/ir"
	"github.com/JayJeyaruban/arrpc/internal/naming"
)

type generator struct {
	buf      bytes.Buffer
	compiled *ir.Compiled
	pkg      string
	latest   goShape
	older    []goShape // oldest first, latest excluded
}

func newGenerator(compiled *ir.Compiled, opts Options) (*generator, error) {
	g := &generator{compiled: compiled, pkg: opts.Package}
	name := compiled.Interface.Name
	if g.pkg == "" {
		g.pkg = PackageName(name)
	}
	if !token.IsIdentifier(g.pkg) {
		return nil, &GenerateError{Interface: name, Message: fmt.Sprintf("invalid package name %q", g.pkg)}
	}

	topLevel := map[string]bool{}
	for _, n := range []string{
		"Version", "Versions", "Service", "Call", "Decode", "Upgrade",
		"Dispatcher", "NewDispatcher", "Client", "NewClient", "decodeArgs",
	} {
		topLevel[n] = true
	}
	declare := func(ident string) error {
		if topLevel[ident] {
			return &GenerateError{Interface: name, Message: fmt.Sprintf("identifier %s is generated twice", ident)}
		}
		topLevel[ident] = true
		return nil
	}

	var err error
	g.latest, err = buildShape(name, compiled.Envelope.Shape(), "", "isCall", "Call")
	if err != nil {
		return nil, err
	}
	for _, v := range g.latest.Variants {
		if err := declare(g.latest.TypeName(v)); err != nil {
			return nil, err
		}
	}

	for _, s := range compiled.Shapes {
		if s.Version == compiled.Envelope.Version {
			continue
		}
		prefix := versionIdent(s.Version)
		shape, err := buildShape(name, s, prefix, "is"+prefix+"Call", prefix+"Call")
		if err != nil {
			return nil, err
		}
		idents := []string{shape.CallType, "Decode" + prefix, "upgrade" + prefix}
		for _, v := range shape.Variants {
			idents = append(idents, shape.TypeName(v))
		}
		for _, ident := range idents {
			if err := declare(ident); err != nil {
				return nil, err
			}
		}
		g.older = append(g.older, shape)
	}
	for i, s := range g.older {
		if err := declare(migrateFunc(s, g.next(i))); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func buildShape(iface string, s ir.Shape, prefix, marker, callType string) (goShape, error) {
	shape := goShape{Version: s.Version, Prefix: prefix, Marker: marker, CallType: callType}
	for _, v := range s.Variants {
		gv := goVariant{Tag: v.Tag, Method: v.Tag, Returns: goTypes[v.Returns]}
		seen := map[string]string{tagMethod: "(generated)", marker: "(generated)"}
		for _, f := range v.Fields {
			gf := goField{
				Wire:    f.Name,
				Name:    naming.Pascal(f.Name),
				Ident:   localIdent(f.Name),
				Type:    goTypes[f.Type],
				Default: goDefaults[f.Type],
			}
			if prev, ok := seen[gf.Name]; ok {
				return goShape{}, &GenerateError{
					Interface: iface,
					Message:   fmt.Sprintf("%s: fields %q and %q both map to %s", v.Tag, prev, f.Name, gf.Name),
				}
			}
			seen[gf.Name] = f.Name
			gv.Fields = append(gv.Fields, gf)
		}
		shape.Variants = append(shape.Variants, gv)
	}
	return shape, nil
}

// next returns the shape that older[i] migrates into.
func (g *generator) next(i int) goShape {
	if i+1 < len(g.older) {
		return g.older[i+1]
	}
	return g.latest
}

func migrateFunc(from, to goShape) string {
	return "Migrate" + versionIdent(from.Version) + "To" + versionIdent(to.Version)
}

func (g *generator) p(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
	g.buf.WriteByte('\n')
}

func (g *generator) emit() {
	g.emitHeader()
	g.emitService()
	g.emitShape(g.latest, fmt.Sprintf("Call is the envelope of %s: one variant per operation at %s.",
		g.compiled.Interface.Name, g.latest.Version))
	for _, s := range g.older {
		g.emitShape(s, fmt.Sprintf("%s is the shape of %s calls at version %s.",
			s.CallType, g.compiled.Interface.Name, s.Version))
	}
	g.emitDecode(g.latest, "Decode")
	for _, s := range g.older {
		g.emitDecode(s, "Decode"+s.Prefix)
	}
	for i, s := range g.older {
		g.emitMigrate(s, g.next(i))
	}
	g.emitUpgrade()
	g.emitDispatcher()
	g.emitClient()
	g.emitHelpers()
}

func (g *generator) emitHeader() {
	c := g.compiled
	g.p("// Code generated by arrpc %s. DO NOT EDIT.", ir.ToolVersion)
	g.p("// Interface %s, fingerprint %s.", c.Interface.Name, c.Fingerprint)
	g.p("")
	g.p("package %s", g.pkg)
	g.p("")
	g.p("import (")
	g.p("\t%q", "bytes")
	g.p("\t%q", "context")
	g.p("\t%q", "encoding/json")
	g.p("\t%q", "fmt")
	g.p("")
	g.p("\t%q", RPCImportPath)
	g.p(")")
	g.p("")
	g.p("// Version is the latest version of %s.", c.Interface.Name)
	g.p("const Version = %q", c.Envelope.Version)
	g.p("")
	quoted := make([]string, len(c.Shapes))
	for i, s := range c.Shapes {
		quoted[i] = strconv.Quote(s.Version)
	}
	g.p("// Versions lists every declared version, oldest first.")
	g.p("var Versions = []string{%s}", strings.Join(quoted, ", "))
	g.p("")
}

func (g *generator) emitService() {
	g.p("// Service implements %s. NewDispatcher requires every method.", g.compiled.Interface.Name)
	g.p("type Service interface {")
	for _, v := range g.latest.Variants {
		g.p("\t%s(ctx context.Context%s) %s", v.Method, params(v), results(v))
	}
	g.p("}")
	g.p("")
}

func params(v goVariant) string {
	var b strings.Builder
	for _, f := range v.Fields {
		fmt.Fprintf(&b, ", %s %s", f.Ident, f.Type)
	}
	return b.String()
}

func results(v goVariant) string {
	if v.Returns == "" {
		return "error"
	}
	return "(" + v.Returns + ", error)"
}

func (g *generator) emitShape(s goShape, doc string) {
	g.p("// %s", doc)
	g.p("type %s interface {", s.CallType)
	g.p("\t%s()", s.Marker)
	g.p("\t%s() string", tagMethod)
	g.p("}")
	g.p("")
	for _, v := range s.Variants {
		name := s.TypeName(v)
		g.p("type %s struct {", name)
		for _, f := range v.Fields {
			g.p("\t%s %s `json:%q`", f.Name, f.Type, f.Wire)
		}
		g.p("}")
		g.p("")
		g.p("func (%s) %s() {}", name, s.Marker)
		g.p("")
		g.p("func (%s) %s() string { return %q }", name, tagMethod, v.Tag)
		g.p("")
	}
}

func (g *generator) emitDecode(s goShape, fn string) {
	g.p("// %s reads a call made at version %s.", fn, s.Version)
	g.p("func %s(tag string, args json.RawMessage) (%s, error) {", fn, s.CallType)
	g.p("\tswitch tag {")
	for _, v := range s.Variants {
		wires := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			wires[i] = strconv.Quote(f.Wire)
		}
		g.p("\tcase %q:", v.Tag)
		g.p("\t\tvar c %s", s.TypeName(v))
		g.p("\t\tif err := decodeArgs(tag, args, []string{%s}, &c); err != nil {", strings.Join(wires, ", "))
		g.p("\t\t\treturn nil, err")
		g.p("\t\t}")
		g.p("\t\treturn c, nil")
	}
	g.p("\tdefault:")
	g.p("\t\treturn nil, fmt.Errorf(\"unknown variant %%q at version %%s\", tag, %q)", s.Version)
	g.p("\t}")
	g.p("}")
	g.p("")
}

func (g *generator) emitMigrate(from, to goShape) {
	fn := migrateFunc(from, to)
	var body bytes.Buffer
	bound := false
	for _, v := range from.Variants {
		target, _ := to.Variant(v.Tag)
		carried := map[string]bool{}
		for _, f := range v.Fields {
			carried[f.Wire] = true
		}
		inits := make([]string, 0, len(target.Fields))
		for _, f := range target.Fields {
			if carried[f.Wire] {
				inits = append(inits, fmt.Sprintf("%s: c.%s", f.Name, f.Name))
				bound = true
			} else {
				inits = append(inits, fmt.Sprintf("%s: %s", f.Name, f.Default))
			}
		}
		fmt.Fprintf(&body, "\tcase %s:\n", from.TypeName(v))
		fmt.Fprintf(&body, "\t\treturn %s{%s}\n", to.TypeName(target), strings.Join(inits, ", "))
	}

	g.p("// %s upgrades a %s call to %s. A nil call stays nil.", fn, from.Version, to.Version)
	g.p("func %s(c %s) %s {", fn, from.CallType, to.CallType)
	if bound {
		g.p("\tswitch c := c.(type) {")
	} else {
		g.p("\tswitch c.(type) {")
	}
	g.buf.Write(body.Bytes())
	g.p("\t}")
	g.p("\treturn nil")
	g.p("}")
	g.p("")
}

func (g *generator) emitUpgrade() {
	for i, s := range g.older {
		next := g.next(i)
		g.p("func upgrade%s(c %s) Call {", s.Prefix, s.CallType)
		if next.Prefix == "" {
			g.p("\treturn %s(c)", migrateFunc(s, next))
		} else {
			g.p("\treturn upgrade%s(%s(c))", next.Prefix, migrateFunc(s, next))
		}
		g.p("}")
		g.p("")
	}

	g.p("// Upgrade decodes a call made at version and migrates it to the latest")
	g.p("// version. An empty version means the latest.")
	g.p("func Upgrade(version, tag string, args json.RawMessage) (Call, error) {")
	g.p("\tswitch version {")
	g.p("\tcase \"\", Version:")
	g.p("\t\treturn Decode(tag, args)")
	for _, s := range g.older {
		g.p("\tcase %q:", s.Version)
		g.p("\t\tc, err := Decode%s(tag, args)", s.Prefix)
		g.p("\t\tif err != nil {")
		g.p("\t\t\treturn nil, err")
		g.p("\t\t}")
		g.p("\t\treturn upgrade%s(c), nil", s.Prefix)
	}
	g.p("\tdefault:")
	g.p("\t\treturn nil, fmt.Errorf(\"unknown version %%q\", version)")
	g.p("\t}")
	g.p("}")
	g.p("")
}

func (g *generator) emitDispatcher() {
	g.p("// Dispatcher serves a Service. It implements rpc.Dispatcher.")
	g.p("type Dispatcher struct {")
	g.p("\tsvc Service")
	g.p("}")
	g.p("")
	g.p("func NewDispatcher(svc Service) *Dispatcher {")
	g.p("\treturn &Dispatcher{svc: svc}")
	g.p("}")
	g.p("")
	g.p("func (d *Dispatcher) Dispatch(ctx context.Context, version, tag string, args json.RawMessage) (any, error) {")
	g.p("\tc, err := Upgrade(version, tag, args)")
	g.p("\tif err != nil {")
	g.p("\t\treturn nil, &rpc.Error{Kind: rpc.KindDecode, Tag: tag, Message: err.Error(), Err: err}")
	g.p("\t}")
	g.p("\treturn d.Serve(ctx, c)")
	g.p("}")
	g.p("")
	g.p("// Serve calls the one service method matching c.")
	g.p("func (d *Dispatcher) Serve(ctx context.Context, c Call) (any, error) {")
	g.p("\tswitch c := c.(type) {")
	for _, v := range g.latest.Variants {
		args := make([]string, 0, len(v.Fields)+1)
		args = append(args, "ctx")
		for _, f := range v.Fields {
			args = append(args, "c."+f.Name)
		}
		g.p("\tcase %s:", g.latest.TypeName(v))
		if v.Returns == "" {
			g.p("\t\treturn nil, d.svc.%s(%s)", v.Method, strings.Join(args, ", "))
		} else {
			g.p("\t\tout, err := d.svc.%s(%s)", v.Method, strings.Join(args, ", "))
			g.p("\t\treturn out, err")
		}
	}
	g.p("\tdefault:")
	g.p("\t\treturn nil, fmt.Errorf(\"unknown call %%T\", c)")
	g.p("\t}")
	g.p("}")
	g.p("")
}

func (g *generator) emitClient() {
	g.p("// Client calls a remote %s. Every call is stamped with Version.", g.compiled.Interface.Name)
	g.p("type Client struct {")
	g.p("\trpc *rpc.Client")
	g.p("}")
	g.p("")
	g.p("func NewClient(transport rpc.Transport, opts ...rpc.ClientOption) *Client {")
	g.p("\topts = append([]rpc.ClientOption{rpc.WithVersion(Version)}, opts...)")
	g.p("\treturn &Client{rpc: rpc.NewClient(transport, opts...)}")
	g.p("}")
	g.p("")
	for _, v := range g.latest.Variants {
		inits := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			inits[i] = fmt.Sprintf("%s: %s", f.Name, f.Ident)
		}
		call := fmt.Sprintf("%s{%s}", g.latest.TypeName(v), strings.Join(inits, ", "))
		g.p("func (cl *Client) %s(ctx context.Context%s) %s {", v.Method, params(v), results(v))
		if v.Returns == "" {
			g.p("\treturn cl.rpc.Call(ctx, %q, %s, nil)", v.Tag, call)
		} else {
			g.p("\tvar out %s", v.Returns)
			g.p("\terr := cl.rpc.Call(ctx, %q, %s, &out)", v.Tag, call)
			g.p("\treturn out, err")
		}
		g.p("}")
		g.p("")
	}
}

func (g *generator) emitHelpers() {
	g.p(`func decodeArgs(tag string, args json.RawMessage, required []string, dst any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(args, &fields); err != nil {
		return fmt.Errorf("%%s: arguments must be an object: %%w", tag, err)
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("%%s: missing field %%q", tag, name)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%%s: %%w", tag, err)
	}
	return nil
}`)
}
