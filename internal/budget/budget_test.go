package budget

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	th := Default()
	require.NoError(t, th.Validate())
	assert.Equal(t, 500000, th.MaxVerts)
	assert.Equal(t, 75, th.MaxUniqueMaterials)
	assert.Equal(t, 200, th.MaxSharedTextureMB)
	assert.Equal(t, 75000, th.MaxColliderVerts)
}

func TestValidateRejectsNonPositive(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Thresholds)
		field string
	}{
		{"zero verts", func(t *Thresholds) { t.MaxVerts = 0 }, "MaxVerts"},
		{"negative materials", func(t *Thresholds) { t.MaxUniqueMaterials = -1 }, "MaxUniqueMaterials"},
		{"zero texture", func(t *Thresholds) { t.MaxSharedTextureMB = 0 }, "MaxSharedTextureMB"},
		{"zero colliders", func(t *Thresholds) { t.MaxColliderVerts = 0 }, "MaxColliderVerts"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			th := Default()
			tc.mod(&th)
			err := th.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBudget))
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestValidateListsEveryBadField(t *testing.T) {
	err := Thresholds{}.Validate()
	require.Error(t, err)
	for _, f := range []string{"MaxVerts", "MaxUniqueMaterials", "MaxSharedTextureMB", "MaxColliderVerts"} {
		assert.True(t, strings.Contains(err.Error(), f), "missing %s in %q", f, err)
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio(75, 75))
	assert.Equal(t, 0.5, Ratio(100, 200))
	assert.Equal(t, 0.0, Ratio(0, 10))
	assert.Greater(t, Ratio(76, 75), OverRatio)
}
