package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiveteam/warrior-pipeline/internal/realize"
)

func TestToRealizeValuePassesThroughLiterals(t *testing.T) {
	v, err := toRealizeValue("plain-string")
	require.NoError(t, err)
	assert.Equal(t, "plain-string", v)
}

func TestToRealizeValueItemTag(t *testing.T) {
	v, err := toRealizeValue(map[string]interface{}{"item": "item_name"})
	require.NoError(t, err)
	assert.Equal(t, realize.ItemValue{Key: "item_name"}, v)
}

func TestToRealizeValueInterpTag(t *testing.T) {
	v, err := toRealizeValue(map[string]interface{}{"interp": "%(item_name)s.warc.gz"})
	require.NoError(t, err)
	assert.Equal(t, realize.ItemInterpolation{Template: "%(item_name)s.warc.gz"}, v)
}

func TestToRealizeValueConfigTag(t *testing.T) {
	v, err := toRealizeValue(map[string]interface{}{
		"config": map[string]interface{}{
			"name":    "concurrent_uploads",
			"default": 2,
			"min":     1,
			"max":     8,
		},
	})
	require.NoError(t, err)
	cv, ok := v.(realize.ConfigValue)
	require.True(t, ok)
	assert.Equal(t, "concurrent_uploads", cv.Name)
	assert.Equal(t, 2, cv.Default)
	require.NotNil(t, cv.Min)
	assert.Equal(t, int64(1), *cv.Min)
	require.NotNil(t, cv.Max)
	assert.Equal(t, int64(8), *cv.Max)
}

func TestToRealizeValueConfigTagRequiresName(t *testing.T) {
	_, err := toRealizeValue(map[string]interface{}{
		"config": map[string]interface{}{"default": 1},
	})
	require.Error(t, err)
}

func TestToRealizeValueRecursesThroughMapsAndSlices(t *testing.T) {
	raw := map[string]interface{}{
		"args": []interface{}{
			"wget",
			map[string]interface{}{"item": "url"},
		},
	}
	v, err := toRealizeValue(raw)
	require.NoError(t, err)
	m := v.(map[string]interface{})
	args := m["args"].([]interface{})
	assert.Equal(t, "wget", args[0])
	assert.Equal(t, realize.ItemValue{Key: "url"}, args[1])
}

func TestAsTagMapRejectsMultiKeyMaps(t *testing.T) {
	_, ok := asTagMap(map[string]interface{}{"item": "a", "extra": "b"})
	assert.False(t, ok)
}
