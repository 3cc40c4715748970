package codegen

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayJeyaruban/arrpc/internal/compiler"
	"github.com/JayJeyaruban/arrpc/internal/ir"
)

func intParam(name string, versions ...string) ir.Param {
	return ir.Param{Name: name, Type: ir.TypeInt, Versions: versions}
}

func mathCompiled(t *testing.T) *ir.Compiled {
	t.Helper()
	compiled, err := compiler.Compile(&ir.Interface{
		Name:     "Math",
		Versions: []string{"1.0.0", "2.0.0"},
		Operations: []ir.Operation{
			{Name: "add", Params: []ir.Param{intParam("a"), intParam("b")}, Returns: ir.TypeInt},
			{
				Name:     "mul",
				Params:   []ir.Param{intParam("a"), intParam("b"), {Name: "round", Type: ir.TypeBool}},
				Returns:  ir.TypeInt,
				Versions: []string{">=2.0.0"},
			},
		},
	})
	require.NoError(t, err)
	return compiled
}

// parse checks that src is syntactically valid Go and returns its top-level
// declarations by name.
func parse(t *testing.T, src []byte) (*ast.File, map[string]ast.Decl) {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "generated.go", src, parser.ParseComments)
	require.NoError(t, err, "generated source:\n%s", src)

	decls := map[string]ast.Decl{}
	for _, d := range f.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil {
				name = recvName(d.Recv.List[0].Type) + "." + name
			}
			decls[name] = d
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					decls[s.Name.Name] = d
				case *ast.ValueSpec:
					for _, n := range s.Names {
						decls[n.Name] = d
					}
				}
			}
		}
	}
	return f, decls
}

func recvName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return recvName(e.X)
	case *ast.Ident:
		return e.Name
	}
	return "?"
}

func serviceMethods(t *testing.T, decls map[string]ast.Decl) []string {
	t.Helper()
	gen, ok := decls["Service"].(*ast.GenDecl)
	require.True(t, ok)
	iface, ok := gen.Specs[0].(*ast.TypeSpec).Type.(*ast.InterfaceType)
	require.True(t, ok)

	var names []string
	for _, m := range iface.Methods.List {
		names = append(names, m.Names[0].Name)
	}
	return names
}

func TestGenerateMath(t *testing.T) {
	src, err := Generate(mathCompiled(t), Options{})
	require.NoError(t, err)

	f, decls := parse(t, src)
	assert.Equal(t, "math", f.Name.Name)
	assert.True(t, strings.HasPrefix(string(src), "// Code generated by arrpc"))

	for _, name := range []string{
		"Version", "Versions", "Service", "Call", "Add", "Mul",
		"V1_0_0Call", "V1_0_0Add", "Decode", "DecodeV1_0_0",
		"MigrateV1_0_0ToV2_0_0", "Upgrade", "Dispatcher", "NewDispatcher",
		"Dispatcher.Dispatch", "Dispatcher.Serve", "Client", "NewClient",
		"Client.Add", "Client.Mul", "decodeArgs",
	} {
		assert.Contains(t, decls, name)
	}
	assert.NotContains(t, decls, "V1_0_0Mul", "mul does not exist at 1.0.0")
	assert.NotContains(t, decls, "V2_0_0Add", "the latest shape is the envelope")

	assert.Equal(t, []string{"Add", "Mul"}, serviceMethods(t, decls))

	s := string(src)
	assert.Contains(t, s, "Add(ctx context.Context, a int64, b int64) (int64, error)")
	assert.Contains(t, s, "Mul(ctx context.Context, a int64, b int64, round bool) (int64, error)")
	assert.Contains(t, s, "Round bool  `json:\"round\"`")
	assert.Contains(t, s, "return Add{A: c.A, B: c.B}")
	assert.Contains(t, s, "// MigrateV1_0_0ToV2_0_0 upgrades a 1.0.0 call to 2.0.0. A nil call stays nil.")
	assert.NotContains(t, s, "panic(")
	assert.Contains(t, s, `const Version = "2.0.0"`)
	assert.Contains(t, s, `var Versions = []string{"1.0.0", "2.0.0"}`)
	assert.Contains(t, s, `"github.com/JayJeyaruban/arrpc/rpc"`)
}

// Every operation is a method of Service, and the dispatcher can only be
// built from a Service, so an implementation missing one does not compile.
func TestGenerateDispatcherRequiresService(t *testing.T) {
	src, err := Generate(mathCompiled(t), Options{})
	require.NoError(t, err)
	_, decls := parse(t, src)

	fn, ok := decls["NewDispatcher"].(*ast.FuncDecl)
	require.True(t, ok)
	require.Len(t, fn.Type.Params.List, 1)
	assert.Equal(t, "Service", fn.Type.Params.List[0].Type.(*ast.Ident).Name)

	serve := decls["Dispatcher.Serve"].(*ast.FuncDecl)
	var cases []string
	ast.Inspect(serve.Body, func(n ast.Node) bool {
		if cc, ok := n.(*ast.CaseClause); ok {
			for _, e := range cc.List {
				cases = append(cases, e.(*ast.Ident).Name)
			}
		}
		return true
	})
	assert.Equal(t, []string{"Add", "Mul"}, cases, "one case per envelope variant")
}

func TestGenerateMigrationChain(t *testing.T) {
	compiled, err := compiler.Compile(&ir.Interface{
		Name:     "KVStore",
		Versions: []string{"1.0.0", "1.1.0", "2.0.0"},
		Operations: []ir.Operation{
			{Name: "put", Params: []ir.Param{
				{Name: "key", Type: ir.TypeString},
				{Name: "ttl_seconds", Type: ir.TypeInt, Versions: []string{">=1.1.0"}},
				{Name: "tags", Type: ir.TypeArray, Versions: []string{">=2.0.0"}},
			}},
			{Name: "ping"},
			{Name: "get", Params: []ir.Param{{Name: "key", Type: ir.TypeString}}, Returns: ir.TypeObject},
		},
	})
	require.NoError(t, err)

	src, err := Generate(compiled, Options{})
	require.NoError(t, err)
	f, decls := parse(t, src)
	assert.Equal(t, "kvstore", f.Name.Name)

	for _, name := range []string{
		"MigrateV1_0_0ToV1_1_0", "MigrateV1_1_0ToV2_0_0",
		"upgradeV1_0_0", "upgradeV1_1_0", "DecodeV1_1_0", "V1_1_0Put",
	} {
		assert.Contains(t, decls, name)
	}

	s := string(src)
	assert.Contains(t, s, "return V1_1_0Put{Key: c.Key, TtlSeconds: 0}")
	assert.Contains(t, s, "return Put{Key: c.Key, TtlSeconds: c.TtlSeconds, Tags: []any{}}")
	assert.Contains(t, s, "return upgradeV1_1_0(MigrateV1_0_0ToV1_1_0(c))")
	assert.Contains(t, s, "Ping(ctx context.Context) error")
	assert.Contains(t, s, "return nil, d.svc.Ping(ctx)")
	assert.Contains(t, s, "Get(ctx context.Context, key string) (map[string]any, error)")
	assert.Contains(t, s, `return cl.rpc.Call(ctx, "Ping", Ping{}, nil)`)
}

func TestGenerateSingleVersion(t *testing.T) {
	compiled, err := compiler.Compile(&ir.Interface{
		Name:       "Health",
		Versions:   []string{"1.0.0"},
		Operations: []ir.Operation{{Name: "ping"}},
	})
	require.NoError(t, err)

	src, err := Generate(compiled, Options{Package: "healthrpc"})
	require.NoError(t, err)
	f, decls := parse(t, src)
	assert.Equal(t, "healthrpc", f.Name.Name)
	for name := range decls {
		assert.False(t, strings.HasPrefix(name, "Migrate"), name)
	}
}

func TestGenerateEscapesIdentifiers(t *testing.T) {
	compiled, err := compiler.Compile(&ir.Interface{
		Name:     "Lookup",
		Versions: []string{"1.0.0"},
		Operations: []ir.Operation{
			{Name: "find", Params: []ir.Param{
				{Name: "type", Type: ir.TypeString},
				{Name: "ctx", Type: ir.TypeString},
				{Name: "range", Type: ir.TypeInt},
			}, Returns: ir.TypeArray},
		},
	})
	require.NoError(t, err)

	src, err := Generate(compiled, Options{})
	require.NoError(t, err)
	parse(t, src)
	assert.Contains(t, string(src), "Find(ctx context.Context, type_ string, ctx_ string, range_ int64) ([]any, error)")
}

func TestGenerateErrors(t *testing.T) {
	collide := &ir.Interface{
		Name:     "Clash",
		Versions: []string{"1.0.0"},
		Operations: []ir.Operation{
			{Name: "f", Params: []ir.Param{intParam("user_id"), intParam("userId")}},
		},
	}
	reserved := &ir.Interface{
		Name:       "Clash",
		Versions:   []string{"1.0.0"},
		Operations: []ir.Operation{{Name: "upgrade"}},
	}
	method := &ir.Interface{
		Name:       "Clash",
		Versions:   []string{"1.0.0"},
		Operations: []ir.Operation{{Name: "f", Params: []ir.Param{intParam("arrpc_tag")}}},
	}

	tests := []struct {
		name  string
		iface *ir.Interface
		opts  Options
		msg   string
	}{
		{"field collision", collide, Options{}, "both map to UserId"},
		{"generated identifier", reserved, Options{}, "Upgrade"},
		{"method collision", method, Options{}, "ArrpcTag"},
		{"bad package", reserved, Options{Package: "9lives"}, "invalid package name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := compiler.Compile(tt.iface)
			require.NoError(t, err)

			_, err = Generate(compiled, tt.opts)
			require.Error(t, err)
			var ge *GenerateError
			require.True(t, errors.As(err, &ge))
			assert.Contains(t, ge.Message, tt.msg)
		})
	}
}

func TestVersionIdent(t *testing.T) {
	assert.Equal(t, "V1_0_0", versionIdent("1.0.0"))
	assert.Equal(t, "V2_0_0_rc_1", versionIdent("2.0.0-rc.1"))
	assert.Equal(t, "V1_0_0_build_5", versionIdent("1.0.0+build.5"))
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "math", PackageName("Math"))
	assert.Equal(t, "kvstore", PackageName("KVStore"))
	assert.Equal(t, "userservice", PackageName("user_service"))
}
