// Package model locates and loads pre-trained model artifacts. Loading never
// fails the caller: any absence or decoding problem yields a component whose
// State reports prediction_type "not_loaded" together with the reason.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/features"
	"github.com/smartcity/airquality/internal/model/xgb"
)

// ManifestFile is the manifest name inside each artifact directory
const ManifestFile = "artifact.json"

// HorizonCount is the number of outputs an ensemble booster must produce (24h, 48h, 72h)
const HorizonCount = 3

const (
	DefaultEnsembleVersion  = "v2.0-ml"
	DefaultRegressorVersion = "v1.0-ml"
)

// DefaultSources is the category order used when a regressor manifest declares none
var DefaultSources = []string{
	string(domain.SourceTraffic),
	string(domain.SourceStubble),
	string(domain.SourceIndustry),
	string(domain.SourceConstruction),
	string(domain.SourceOther),
}

// Manifest declares the feature schema and model files of an artifact
type Manifest struct {
	ModelVersion string   `json:"model_version"`
	Features     []string `json:"features"`
	ModelPaths   []string `json:"model_paths"`
	Sources      []string `json:"sources,omitempty"`
}

// Predictor evaluates one feature vector
type Predictor interface {
	Predict(x []float64) ([]float64, error)
}

// State is the write-once outcome of a load attempt
type State struct {
	Loaded         bool                  `json:"loaded"`
	PredictionType domain.PredictionType `json:"prediction_type"`
	ModelVersion   string                `json:"model_version"`
	Dir            string                `json:"dir"`
	Features       []string              `json:"features,omitempty"`
	Artifacts      []string              `json:"artifacts,omitempty"`
	Missing        []string              `json:"missing,omitempty"`
	Reason         string                `json:"reason,omitempty"`
	LoadedAt       time.Time             `json:"loaded_at"`
}

func (s State) clone() State {
	s.Features = append([]string(nil), s.Features...)
	s.Artifacts = append([]string(nil), s.Artifacts...)
	s.Missing = append([]string(nil), s.Missing...)
	return s
}

// Loader loads artifacts from disk
type Loader struct {
	log   logrus.FieldLogger
	clock clockwork.Clock
}

// NewLoader creates a loader
func NewLoader(log logrus.FieldLogger, clock clockwork.Clock) *Loader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loader{log: log, clock: clock}
}

func readManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("model: failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("model: failed to decode manifest: %w", err)
	}
	if err := features.Schema(m.Features).Validate(); err != nil {
		return Manifest{}, fmt.Errorf("model: invalid manifest schema: %w", err)
	}
	if len(m.ModelPaths) == 0 {
		return Manifest{}, errors.New("model: manifest lists no model files")
	}
	return m, nil
}

// resolve maps a manifest entry to a file in dir, accepting a zstd sibling
func resolve(dir, entry string) (string, bool) {
	path := filepath.Join(dir, filepath.Base(entry))
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	if _, err := os.Stat(path + ".zst"); err == nil {
		return path + ".zst", true
	}
	return path, false
}

func checkSchema(b *xgb.Booster, schema features.Schema) error {
	if names := b.FeatureNames(); len(names) > 0 && !schema.Equal(names) {
		return errors.New("embedded feature names differ from manifest")
	}
	if n := b.NumFeatures(); n > 0 && n != len(schema) {
		return fmt.Errorf("model expects %d features, manifest declares %d", n, len(schema))
	}
	return nil
}

func (l *Loader) notLoaded(dir, version, reason string) State {
	return State{
		PredictionType: domain.PredictionNotLoaded,
		ModelVersion:   version,
		Dir:            dir,
		Reason:         reason,
		LoadedAt:       l.clock.Now(),
	}
}
