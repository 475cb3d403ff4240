package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvortex/hedge/symbolic"
)

func TestRemoveQuadUpsamplers(t *testing.T) {
	u := &symbolic.Variable{Name: "u"}
	up := symbolic.Apply(&symbolic.QuadUpsampleOp{QuadTag: "fine"}, u)

	t.Run("UnconfiguredTagStripsWithWarning", func(t *testing.T) {
		var warnings []string
		got, err := RemoveQuadUpsamplers(up, nil, collectWarnings(&warnings))
		require.NoError(t, err)
		assert.True(t, symbolic.Equal(u, got))
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "fine")
	})

	t.Run("ZeroDegreeStripsSilently", func(t *testing.T) {
		var warnings []string
		got, err := RemoveQuadUpsamplers(up, map[string]int{"fine": 0}, collectWarnings(&warnings))
		require.NoError(t, err)
		assert.True(t, symbolic.Equal(u, got))
		assert.Empty(t, warnings)
	})

	t.Run("PositiveDegreeKeeps", func(t *testing.T) {
		var warnings []string
		got, err := RemoveQuadUpsamplers(up, map[string]int{"fine": 2}, collectWarnings(&warnings))
		require.NoError(t, err)
		assert.True(t, symbolic.Equal(up, got))
		assert.Empty(t, warnings)
	})
}
