// Package xgb evaluates gradient-boosted tree models saved in XGBoost's JSON
// model format. Only regression objectives with an identity link are
// supported; one_output_per_tree multi-target models map each tree to its
// target through tree_info.
package xgb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrFeatureCount is returned when a vector's width differs from the model's
var ErrFeatureCount = errors.New("feature count mismatch")

var supportedObjectives = map[string]bool{
	"reg:squarederror":     true,
	"reg:absoluteerror":    true,
	"reg:pseudohubererror": true,
	"reg:linear":           true,
}

// Booster is an immutable, loaded tree ensemble. It is safe for concurrent use.
type Booster struct {
	numFeature   int
	baseScore    []float64
	trees        []tree
	treeTarget   []int
	featureNames []string
}

type tree struct {
	left       []int
	right      []int
	splitIndex []int
	splitCond  []float64
	defaultLft []bool
}

// NumTargets returns the output width
func (b *Booster) NumTargets() int {
	return len(b.baseScore)
}

// NumFeatures returns the declared input width (0 when undeclared)
func (b *Booster) NumFeatures() int {
	return b.numFeature
}

// FeatureNames returns the feature names embedded in the model, if any
func (b *Booster) FeatureNames() []string {
	out := make([]string, len(b.featureNames))
	copy(out, b.featureNames)
	return out
}

// NumTrees returns the number of trees
func (b *Booster) NumTrees() int {
	return len(b.trees)
}

// Predict returns one raw output per target. NaN inputs follow each split's default direction.
func (b *Booster) Predict(x []float64) ([]float64, error) {
	if b.numFeature > 0 && len(x) != b.numFeature {
		return nil, fmt.Errorf("xgb: got %d features, model expects %d: %w", len(x), b.numFeature, ErrFeatureCount)
	}

	out := make([]float64, len(b.baseScore))
	copy(out, b.baseScore)

	for i := range b.trees {
		leaf, err := b.trees[i].eval(x)
		if err != nil {
			return nil, fmt.Errorf("xgb: tree %d: %w", i, err)
		}
		out[b.treeTarget[i]] += leaf
	}
	return out, nil
}

func (t *tree) eval(x []float64) (float64, error) {
	node := 0
	for steps := 0; steps <= len(t.left); steps++ {
		if t.left[node] == -1 {
			return t.splitCond[node], nil
		}
		idx := t.splitIndex[node]
		if idx < 0 || idx >= len(x) {
			return 0, fmt.Errorf("split index %d out of range", idx)
		}
		v := x[idx]
		switch {
		case math.IsNaN(v):
			if t.defaultLft[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case v < t.splitCond[node]:
			node = t.left[node]
		default:
			node = t.right[node]
		}
	}
	return 0, errors.New("cycle detected")
}

// LoadFile reads a model from disk; a ".zst" suffix selects zstd decompression
func LoadFile(path string) (*Booster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xgb: failed to open model: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xgb: failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	return Load(r)
}

// Load decodes an XGBoost JSON model
func Load(r io.Reader) (*Booster, error) {
	var doc modelJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("xgb: failed to decode model: %w", err)
	}
	return build(doc)
}

func build(doc modelJSON) (*Booster, error) {
	l := doc.Learner

	if name := l.Objective.Name; name != "" && !supportedObjectives[name] {
		return nil, fmt.Errorf("xgb: unsupported objective %q", name)
	}
	if name := l.GradientBooster.Name; name != "" && name != "gbtree" {
		return nil, fmt.Errorf("xgb: unsupported booster %q", name)
	}

	numTarget, err := parseIntParam(l.LearnerModelParam.NumTarget, 1)
	if err != nil {
		return nil, fmt.Errorf("xgb: num_target: %w", err)
	}
	if numTarget < 1 {
		numTarget = 1
	}
	numFeature, err := parseIntParam(l.LearnerModelParam.NumFeature, 0)
	if err != nil {
		return nil, fmt.Errorf("xgb: num_feature: %w", err)
	}
	base, err := parseBaseScore(l.LearnerModelParam.BaseScore, numTarget)
	if err != nil {
		return nil, fmt.Errorf("xgb: base_score: %w", err)
	}

	model := l.GradientBooster.Model
	if len(model.TreeInfo) != len(model.Trees) {
		return nil, fmt.Errorf("xgb: tree_info has %d entries for %d trees", len(model.TreeInfo), len(model.Trees))
	}

	b := &Booster{
		numFeature:   numFeature,
		baseScore:    base,
		trees:        make([]tree, 0, len(model.Trees)),
		treeTarget:   make([]int, 0, len(model.Trees)),
		featureNames: l.FeatureNames,
	}

	for i, tj := range model.Trees {
		t, err := tj.toTree()
		if err != nil {
			return nil, fmt.Errorf("xgb: tree %d: %w", i, err)
		}
		target := model.TreeInfo[i]
		if target < 0 || target >= numTarget {
			return nil, fmt.Errorf("xgb: tree %d targets output %d of %d", i, target, numTarget)
		}
		b.trees = append(b.trees, t)
		b.treeTarget = append(b.treeTarget, target)
	}

	return b, nil
}

// XGBoost JSON model document (subset)

type modelJSON struct {
	Learner learnerJSON `json:"learner"`
	Version []int       `json:"version"`
}

type learnerJSON struct {
	FeatureNames      []string `json:"feature_names"`
	LearnerModelParam struct {
		BaseScore  string `json:"base_score"`
		NumFeature string `json:"num_feature"`
		NumTarget  string `json:"num_target"`
	} `json:"learner_model_param"`
	Objective struct {
		Name string `json:"name"`
	} `json:"objective"`
	GradientBooster struct {
		Name  string `json:"name"`
		Model struct {
			Trees    []treeJSON `json:"trees"`
			TreeInfo []int      `json:"tree_info"`
		} `json:"model"`
	} `json:"gradient_booster"`
}

type treeJSON struct {
	LeftChildren    []int      `json:"left_children"`
	RightChildren   []int      `json:"right_children"`
	SplitIndices    []int      `json:"split_indices"`
	SplitConditions []float64  `json:"split_conditions"`
	DefaultLeft     []flexBool `json:"default_left"`
	SplitType       []int      `json:"split_type"`
}

func (tj treeJSON) toTree() (tree, error) {
	n := len(tj.LeftChildren)
	if n == 0 {
		return tree{}, errors.New("empty tree")
	}
	if len(tj.RightChildren) != n || len(tj.SplitIndices) != n || len(tj.SplitConditions) != n || len(tj.DefaultLeft) != n {
		return tree{}, errors.New("node arrays differ in length")
	}
	for _, st := range tj.SplitType {
		if st != 0 {
			return tree{}, errors.New("categorical splits are not supported")
		}
	}
	for i := 0; i < n; i++ {
		l, r := tj.LeftChildren[i], tj.RightChildren[i]
		if l == -1 {
			continue
		}
		if l <= 0 || l >= n || r <= 0 || r >= n {
			return tree{}, fmt.Errorf("node %d has invalid children (%d, %d)", i, l, r)
		}
	}

	def := make([]bool, n)
	for i, v := range tj.DefaultLeft {
		def[i] = bool(v)
	}
	return tree{
		left:       tj.LeftChildren,
		right:      tj.RightChildren,
		splitIndex: tj.SplitIndices,
		splitCond:  tj.SplitConditions,
		defaultLft: def,
	}, nil
}

// flexBool accepts both the boolean and the 0/1 encodings XGBoost has used for default_left
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "true", "1":
		*f = true
	case "false", "0":
		*f = false
	default:
		return fmt.Errorf("invalid default_left value %s", data)
	}
	return nil
}

func parseIntParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// parseBaseScore handles "5E-1" as well as the bracketed vector form "[1.5E2,1.6E2]"
func parseBaseScore(s string, numTarget int) ([]float64, error) {
	out := make([]float64, numTarget)
	s = strings.TrimSpace(s)
	if s == "" {
		for i := range out {
			out[i] = 0.5
		}
		return out, nil
	}

	if strings.HasPrefix(s, "[") {
		parts := strings.Split(strings.Trim(s, "[]"), ",")
		if len(parts) == 1 {
			s = parts[0]
		} else {
			if len(parts) != numTarget {
				return nil, fmt.Errorf("%d values for %d targets", len(parts), numTarget)
			}
			for i, p := range parts {
				v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = v
	}
	return out, nil
}
