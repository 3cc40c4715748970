package constraint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionsOrdered(t *testing.T) {
	versions, errs := ParseVersions([]string{"1.0.0", "1.1.0", "2.0.0"})
	require.Empty(t, errs)
	require.Len(t, versions, 3)
	assert.Equal(t, "2.0.0", Latest(versions).String())
}

func TestParseVersionsEmpty(t *testing.T) {
	versions, errs := ParseVersions(nil)
	assert.Empty(t, errs)
	assert.Nil(t, Latest(versions))
}

func TestParseVersionsOutOfOrder(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		index int
	}{
		{"descending", []string{"2.0.0", "1.0.0"}, 1},
		{"duplicate", []string{"1.0.0", "1.0.0"}, 1},
		{"semantic not lexical", []string{"1.10.0", "1.9.0"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := ParseVersions(tt.input)
			require.Len(t, errs, 1)

			var oe *OrderError
			require.True(t, errors.As(errs[0], &oe))
			assert.Equal(t, tt.index, oe.Index)
		})
	}
}

func TestParseVersionsMalformedCollectsAll(t *testing.T) {
	_, errs := ParseVersions([]string{"1.0", "1.0.0", "v2"})
	require.Len(t, errs, 2)

	var ve *VersionError
	require.True(t, errors.As(errs[0], &ve))
	assert.Equal(t, 0, ve.Index)
	require.True(t, errors.As(errs[1], &ve))
	assert.Equal(t, 2, ve.Index)
}

func TestOrderErrorMessage(t *testing.T) {
	assert.Contains(t, (&OrderError{Index: 1, Prev: "1.0.0", Next: "1.0.0"}).Error(), "duplicate")
	assert.Contains(t, (&OrderError{Index: 1, Prev: "2.0.0", Next: "1.0.0"}).Error(), "must be greater")
}
