package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayJeyaruban/arrpc/internal/ir"
)

func TestMigrationIdentityWhenUnchanged(t *testing.T) {
	iface := &ir.Interface{
		Name:     "Math",
		Versions: []string{"1.0.0", "1.0.1", "1.0.2"},
		Operations: []ir.Operation{
			{Name: "add", Params: []ir.Param{intParam("a"), intParam("b")}, Returns: ir.TypeInt},
			{Name: "neg", Params: []ir.Param{intParam("a")}, Returns: ir.TypeInt},
		},
	}

	steps, err := CompileMigrations(iface)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	for _, step := range steps {
		assert.True(t, step.Identity(), "%s -> %s", step.From, step.To)
		require.Len(t, step.Arms, 2)
		assert.Equal(t, []string{"a", "b"}, step.Arms[0].Carried)
		assert.Equal(t, []string{"a"}, step.Arms[1].Carried)
	}
}

func TestMigrationDefaultsAddedParams(t *testing.T) {
	iface := &ir.Interface{
		Name:     "Store",
		Versions: []string{"1.0.0", "1.1.0"},
		Operations: []ir.Operation{
			{Name: "put", Params: []ir.Param{
				{Name: "key", Type: ir.TypeString},
				{Name: "ttl", Type: ir.TypeInt, Versions: []string{">=1.1.0"}},
				{Name: "value", Type: ir.TypeString},
			}},
		},
	}

	steps, err := CompileMigrations(iface)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	arm, ok := steps[0].Arm("Put")
	require.True(t, ok)
	assert.Equal(t, []string{"key", "value"}, arm.Carried)
	assert.Equal(t, []ir.Field{{Name: "ttl", Type: ir.TypeInt}}, arm.Defaulted)
	assert.False(t, steps[0].Identity())
}

func TestMigrationNewOperationNeedsNoArm(t *testing.T) {
	steps, err := CompileMigrations(mathInterface())
	require.NoError(t, err)
	require.Len(t, steps, 1)

	_, ok := steps[0].Arm("Mul")
	assert.False(t, ok, "steps are total over the older shape only")
}

func TestMigrationParamRemovedIsBuildError(t *testing.T) {
	iface := mathInterface()
	iface.Operations[0].Params[1].Versions = []string{"<2.0.0"}

	_, err := Compile(iface)
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrParamRemoved))

	var be *BuildError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Errors, 1)
	assert.Equal(t, "operations.add.params.b", be.Errors[0].Field)
	assert.Contains(t, be.Errors[0].Message, "argument \"b\" of \"add\" removed between 1.0.0 and 2.0.0, unsupported")
}

func TestMigrationOperationRemovedIsBuildError(t *testing.T) {
	iface := mathInterface()
	iface.Operations[0].Versions = []string{"<2.0.0"}

	_, err := Compile(iface)
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrOperationRemoved))
	assert.Contains(t, err.Error(), "operation \"add\" removed between 1.0.0 and 2.0.0")
}

func TestMigrationUnionGapIsRemoval(t *testing.T) {
	iface := &ir.Interface{
		Name:     "Gap",
		Versions: []string{"1.0.0", "2.0.0", "3.0.0"},
		Operations: []ir.Operation{
			{Name: "legacy", Versions: []string{"1.0.0", "3.0.0"}},
		},
	}

	_, err := Compile(iface)
	require.Error(t, err)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, []string{ErrOperationRemoved}, be.Codes(), "absent at 2.0.0 even though it returns at 3.0.0")
}

func TestMigrationErrorsCollectedAcrossPairs(t *testing.T) {
	iface := &ir.Interface{
		Name:     "Many",
		Versions: []string{"1.0.0", "2.0.0", "3.0.0"},
		Operations: []ir.Operation{
			{Name: "a", Params: []ir.Param{intParam("x", "<2.0.0")}},
			{Name: "b", Versions: []string{"<3.0.0"}},
			{Name: "c", Params: []ir.Param{intParam("y", "<3.0.0"), intParam("z", "<3.0.0")}},
		},
	}

	_, err := Compile(iface)
	require.Error(t, err)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, []string{ErrParamRemoved, ErrOperationRemoved, ErrParamRemoved, ErrParamRemoved}, be.Codes())
	assert.Contains(t, be.Error(), "4 build errors")
}

func TestMigrationRenameNotInferred(t *testing.T) {
	iface := &ir.Interface{
		Name:     "Rename",
		Versions: []string{"1.0.0", "2.0.0"},
		Operations: []ir.Operation{
			{Name: "sum", Versions: []string{"1.0.0"}, Params: []ir.Param{intParam("a")}},
			{Name: "total", Versions: []string{">=2.0.0"}, Params: []ir.Param{intParam("a")}},
		},
	}

	_, err := Compile(iface)
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrOperationRemoved))
}

func TestMigrationParamReorderIsHarmless(t *testing.T) {
	// Fields bind by name, so declaration order across versions is irrelevant.
	iface := &ir.Interface{
		Name:     "Order",
		Versions: []string{"1.0.0", "2.0.0"},
		Operations: []ir.Operation{
			{Name: "f", Params: []ir.Param{
				intParam("late", ">=2.0.0"),
				intParam("early"),
			}},
		},
	}

	steps, err := CompileMigrations(iface)
	require.NoError(t, err)
	arm, ok := steps[0].Arm("F")
	require.True(t, ok)
	assert.Equal(t, []string{"early"}, arm.Carried)
	assert.Equal(t, "late", arm.Defaulted[0].Name)
}

func TestSingleVersionHasNoSteps(t *testing.T) {
	iface := mathInterface()
	iface.Versions = []string{"2.0.0"}

	compiled, err := Compile(iface)
	require.NoError(t, err)
	assert.NotNil(t, compiled.Migrations)
	assert.Empty(t, compiled.Migrations)
}
