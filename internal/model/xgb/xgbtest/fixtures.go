// Package xgbtest builds small XGBoost JSON models for tests.
package xgbtest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zstd"
)

// Tree is a node-array tree in XGBoost's JSON layout
type Tree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	DefaultLeft     []int     `json:"default_left"`
	BaseWeights     []float64 `json:"base_weights"`
}

// Leaf is a single-node tree returning v
func Leaf(v float64) Tree {
	return Tree{
		LeftChildren:    []int{-1},
		RightChildren:   []int{-1},
		SplitIndices:    []int{0},
		SplitConditions: []float64{v},
		DefaultLeft:     []int{0},
		BaseWeights:     []float64{v},
	}
}

// Stump splits on feature idx at threshold; x < threshold yields left, else right.
// Missing values go left.
func Stump(idx int, threshold, left, right float64) Tree {
	return Tree{
		LeftChildren:    []int{1, -1, -1},
		RightChildren:   []int{2, -1, -1},
		SplitIndices:    []int{idx, 0, 0},
		SplitConditions: []float64{threshold, left, right},
		DefaultLeft:     []int{1, 0, 0},
		BaseWeights:     []float64{0, left, right},
	}
}

// Model describes a test model
type Model struct {
	Features  []string
	BaseScore float64
	Targets   int
	Trees     []Tree
	TreeInfo  []int
	Objective string
}

// Constant returns a model that outputs exactly outputs[i] for target i
func Constant(features []string, outputs ...float64) Model {
	m := Model{Features: features, Targets: len(outputs)}
	for i, v := range outputs {
		m.Trees = append(m.Trees, Leaf(v))
		m.TreeInfo = append(m.TreeInfo, i)
	}
	return m
}

// JSON renders the model document
func (m Model) JSON() []byte {
	objective := m.Objective
	if objective == "" {
		objective = "reg:squarederror"
	}
	targets := m.Targets
	if targets == 0 {
		targets = 1
	}
	trees := make([]map[string]any, len(m.Trees))
	for i, t := range m.Trees {
		trees[i] = map[string]any{
			"id":               i,
			"left_children":    t.LeftChildren,
			"right_children":   t.RightChildren,
			"split_indices":    t.SplitIndices,
			"split_conditions": t.SplitConditions,
			"default_left":     t.DefaultLeft,
			"base_weights":     t.BaseWeights,
			"tree_param": map[string]string{
				"num_nodes":        strconv.Itoa(len(t.LeftChildren)),
				"size_leaf_vector": "1",
			},
		}
	}
	doc := map[string]any{
		"version": []int{2, 0, 3},
		"learner": map[string]any{
			"feature_names": m.Features,
			"learner_model_param": map[string]string{
				"base_score":  strconv.FormatFloat(m.BaseScore, 'E', -1, 64),
				"num_feature": strconv.Itoa(len(m.Features)),
				"num_target":  strconv.Itoa(targets),
				"num_class":   "0",
			},
			"objective": map[string]any{"name": objective},
			"gradient_booster": map[string]any{
				"name": "gbtree",
				"model": map[string]any{
					"trees":     trees,
					"tree_info": m.TreeInfo,
				},
			},
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return b
}

// WriteFile writes the model as plain JSON into dir/name and returns the path
func WriteFile(tb testing.TB, dir, name string, m Model) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, m.JSON(), 0o644); err != nil {
		tb.Fatalf("write model: %v", err)
	}
	return path
}

// WriteZstdFile writes the model zstd-compressed into dir/name and returns the path
func WriteZstdFile(tb testing.TB, dir, name string, m Model) string {
	tb.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		tb.Fatalf("zstd writer: %v", err)
	}
	if _, err := enc.Write(m.JSON()); err != nil {
		tb.Fatalf("zstd write: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("zstd close: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		tb.Fatalf("write model: %v", err)
	}
	return path
}
