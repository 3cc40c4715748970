package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayJeyaruban/arrpc/internal/compiler"
	"github.com/JayJeyaruban/arrpc/internal/ir"
)

func createTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	t.Cleanup(func() { r.Close() })
	return r
}

func intParam(name string, versions ...string) ir.Param {
	return ir.Param{Name: name, Type: ir.TypeInt, Versions: versions}
}

func mathAt(t *testing.T, versions ...string) *ir.Compiled {
	t.Helper()
	compiled, err := compiler.Compile(&ir.Interface{
		Name:     "Math",
		Versions: versions,
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

func TestOpenAppliesPragmas(t *testing.T) {
	r := createTestRegistry(t)
	assert.NoError(t, r.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, r.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, r.verifyPragma("user_version", "1"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	r1, err := Open(path)
	require.NoError(t, err)
	_, err = r1.Publish(context.Background(), mathAt(t, "1.0.0"))
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2, err := Open(path)
	require.NoError(t, err)
	defer r2.Close()
	pub, err := r2.Published(context.Background(), "Math")
	require.NoError(t, err)
	assert.Len(t, pub, 1)
}

func TestPublishAppendsVersions(t *testing.T) {
	ctx := context.Background()
	r := createTestRegistry(t)

	added, err := r.Publish(ctx, mathAt(t, "1.0.0"))
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "1.0.0", added[0].Version)
	assert.Len(t, added[0].Fingerprint, 64)

	added, err = r.Publish(ctx, mathAt(t, "1.0.0", "2.0.0"))
	require.NoError(t, err)
	require.Len(t, added, 1, "1.0.0 is already frozen")
	assert.Equal(t, "2.0.0", added[0].Version)
	assert.Equal(t, 1, added[0].Seq)

	// Re-publishing the same description is a no-op.
	added, err = r.Publish(ctx, mathAt(t, "1.0.0", "2.0.0"))
	require.NoError(t, err)
	assert.Empty(t, added)

	pub, err := r.Published(ctx, "Math")
	require.NoError(t, err)
	require.Len(t, pub, 2)
	assert.Equal(t, "1.0.0", pub[0].Version)
	assert.Equal(t, "2.0.0", pub[1].Version)
	assert.True(t, pub[0].PublishedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	names, err := r.Interfaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Math"}, names)
}

func TestPublishRefusesHistoryRewrites(t *testing.T) {
	ctx := context.Background()

	changed := mathAt(t, "1.0.0", "2.0.0")
	changedIface := changed.Interface
	changedIface.Operations[0].Params[1].Type = ir.TypeString
	changed, err := compiler.Compile(&changedIface)
	require.NoError(t, err)

	tests := []struct {
		name    string
		next    *ir.Compiled
		code    ViolationCode
		version string
	}{
		{"dropped version", mathAt(t, "2.0.0"), ViolationDropped, "1.0.0"},
		{"changed shape", changed, ViolationChanged, "1.0.0"},
		{"inserted version", mathAt(t, "1.0.0", "1.5.0", "2.0.0"), ViolationInserted, "1.5.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := createTestRegistry(t)
			_, err := r.Publish(ctx, mathAt(t, "1.0.0", "2.0.0"))
			require.NoError(t, err)

			violations, err := r.Check(ctx, tt.next)
			require.NoError(t, err)
			require.NotEmpty(t, violations)
			assert.Equal(t, tt.code, violations[0].Code)
			assert.Equal(t, tt.version, violations[0].Version)

			_, err = r.Publish(ctx, tt.next)
			var ce *ConflictError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, "Math", ce.Interface)
			assert.Contains(t, err.Error(), string(tt.code))

			// Nothing was written.
			pub, err := r.Published(ctx, "Math")
			require.NoError(t, err)
			assert.Len(t, pub, 2)
		})
	}
}

func TestCheckUnpublishedInterface(t *testing.T) {
	r := createTestRegistry(t)
	violations, err := r.Check(context.Background(), mathAt(t, "1.0.0"))
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	r := createTestRegistry(t)

	_, err := r.Load(ctx, "Math")
	assert.ErrorIs(t, err, ErrNotFound)

	compiled := mathAt(t, "1.0.0", "2.0.0")
	_, err = r.Publish(ctx, compiled)
	require.NoError(t, err)

	loaded, err := r.Load(ctx, "Math")
	require.NoError(t, err)
	assert.Equal(t, compiled.Fingerprint, loaded.Fingerprint)
	assert.Equal(t, compiled.Envelope, loaded.Envelope)

	fp, err := ir.InterfaceFingerprint(loaded)
	require.NoError(t, err)
	assert.Equal(t, compiled.Fingerprint, fp, "stored artifact round-trips")
}
