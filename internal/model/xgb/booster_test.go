package xgb

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/airquality/internal/model/xgb/xgbtest"
)

func TestLoad_ConstantMultiTarget(t *testing.T) {
	m := xgbtest.Constant([]string{"a", "b"}, 150, 160, 170)
	b, err := Load(bytes.NewReader(m.JSON()))
	require.NoError(t, err)

	assert.Equal(t, 3, b.NumTargets())
	assert.Equal(t, 2, b.NumFeatures())
	assert.Equal(t, []string{"a", "b"}, b.FeatureNames())

	out, err := b.Predict([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{150, 160, 170}, out)
}

func TestPredict_StumpRouting(t *testing.T) {
	m := xgbtest.Model{
		Features:  []string{"pm25", "no2"},
		BaseScore: 10,
		Targets:   1,
		Trees: []xgbtest.Tree{
			xgbtest.Stump(0, 50, -2, 3),
			xgbtest.Stump(1, 30, 1, 4),
		},
		TreeInfo: []int{0, 0},
	}
	b, err := Load(bytes.NewReader(m.JSON()))
	require.NoError(t, err)

	tests := []struct {
		name string
		x    []float64
		want float64
	}{
		{"both left", []float64{10, 10}, 10 - 2 + 1},
		{"both right", []float64{80, 60}, 10 + 3 + 4},
		{"threshold goes right", []float64{50, 30}, 10 + 3 + 4},
		{"missing follows default", []float64{math.NaN(), 60}, 10 - 2 + 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := b.Predict(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, out[0], 1e-12)
		})
	}
}

func TestPredict_FeatureCountMismatch(t *testing.T) {
	b, err := Load(bytes.NewReader(xgbtest.Constant([]string{"a", "b"}, 1).JSON()))
	require.NoError(t, err)

	_, err = b.Predict([]float64{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeatureCount)
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("classification objective", func(t *testing.T) {
		m := xgbtest.Constant([]string{"a"}, 1)
		m.Objective = "binary:logistic"
		_, err := Load(bytes.NewReader(m.JSON()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported objective")
	})

	t.Run("tree targets missing output", func(t *testing.T) {
		m := xgbtest.Constant([]string{"a"}, 1, 2)
		m.TreeInfo = []int{0, 5}
		_, err := Load(bytes.NewReader(m.JSON()))
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Load(strings.NewReader("binf\x00\x01"))
		require.Error(t, err)
	})

	t.Run("dangling child", func(t *testing.T) {
		m := xgbtest.Model{Features: []string{"a"}, Targets: 1, TreeInfo: []int{0}}
		stump := xgbtest.Stump(0, 1, 1, 2)
		stump.RightChildren[0] = 9
		m.Trees = []xgbtest.Tree{stump}
		_, err := Load(bytes.NewReader(m.JSON()))
		require.Error(t, err)
	})
}

func TestParseBaseScore(t *testing.T) {
	v, err := parseBaseScore("5E-1", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, v)

	v, err = parseBaseScore("[1.5E2,1.6E2]", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{150, 160}, v)

	v, err = parseBaseScore("[2E0]", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, v)

	_, err = parseBaseScore("[1,2,3]", 2)
	require.Error(t, err)
}

func TestFlexBool(t *testing.T) {
	var vals []flexBool
	require.NoError(t, json.Unmarshal([]byte(`[true, 0, 1, false]`), &vals))
	assert.Equal(t, []flexBool{true, false, true, false}, vals)
}

func TestLoadFile_Zstd(t *testing.T) {
	dir := t.TempDir()
	path := xgbtest.WriteZstdFile(t, dir, "booster.json.zst", xgbtest.Constant([]string{"a"}, 42))

	b, err := LoadFile(path)
	require.NoError(t, err)
	out, err := b.Predict([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, []float64{42}, out)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(t.TempDir() + "/nope.json")
	require.Error(t, err)
}
