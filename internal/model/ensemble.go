package model

import (
	"fmt"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/features"
	"github.com/smartcity/airquality/internal/model/xgb"
)

// Ensemble is a set of boosters sharing one feature schema
type Ensemble struct {
	state    State
	schema   features.Schema
	boosters []Predictor
}

// NewEnsemble builds a loaded ensemble from in-memory predictors
func NewEnsemble(version string, schema features.Schema, boosters ...Predictor) *Ensemble {
	state := State{
		Loaded:         len(boosters) > 0,
		PredictionType: domain.PredictionML,
		ModelVersion:   version,
		Features:       append([]string(nil), schema...),
	}
	if !state.Loaded {
		state.PredictionType = domain.PredictionNotLoaded
		state.Reason = "no boosters"
	}
	return &Ensemble{state: state, schema: schema, boosters: boosters}
}

// State returns a copy of the load outcome
func (e *Ensemble) State() State {
	return e.state.clone()
}

// Loaded reports whether at least one booster is available
func (e *Ensemble) Loaded() bool {
	return e.state.Loaded
}

// Schema returns the declared feature order
func (e *Ensemble) Schema() features.Schema {
	return e.schema
}

// Boosters returns the loaded predictors
func (e *Ensemble) Boosters() []Predictor {
	return e.boosters
}

// LoadEnsemble loads the forecast ensemble found in dir
func (l *Loader) LoadEnsemble(dir string) *Ensemble {
	log := l.log.WithField("component", "forecast_model").WithField("dir", dir)

	m, err := readManifest(dir)
	if err != nil {
		log.WithError(err).Warn("AQI forecasting model not found, ML forecasts disabled")
		log.Warnf("to enable ML forecasts place %s and the booster files listed in it under %s", ManifestFile, dir)
		return &Ensemble{state: l.notLoaded(dir, DefaultEnsembleVersion, err.Error())}
	}

	version := m.ModelVersion
	if version == "" {
		version = DefaultEnsembleVersion
	}
	schema := features.Schema(m.Features)

	var (
		boosters []Predictor
		loaded   []string
		missing  []string
	)
	for _, entry := range m.ModelPaths {
		path, ok := resolve(dir, entry)
		if !ok {
			log.WithField("booster", entry).Warn("booster file not found")
			missing = append(missing, entry)
			continue
		}
		b, err := l.loadBooster(path, schema, HorizonCount)
		if err != nil {
			log.WithField("booster", entry).WithError(err).Warn("booster rejected")
			missing = append(missing, entry)
			continue
		}
		boosters = append(boosters, b)
		loaded = append(loaded, entry)
		log.WithField("booster", entry).Info("loaded booster")
	}

	state := State{
		Loaded:         len(boosters) > 0,
		PredictionType: domain.PredictionML,
		ModelVersion:   version,
		Dir:            dir,
		Features:       append([]string(nil), schema...),
		Artifacts:      loaded,
		Missing:        missing,
		LoadedAt:       l.clock.Now(),
	}
	if !state.Loaded {
		state.PredictionType = domain.PredictionNotLoaded
		state.Reason = "no boosters loaded"
		log.Error("no boosters loaded, ML forecasts disabled")
		return &Ensemble{state: state, schema: schema}
	}

	log.WithField("boosters", len(boosters)).Info("AQI forecasting model loaded")
	return &Ensemble{state: state, schema: schema, boosters: boosters}
}

func (l *Loader) loadBooster(path string, schema features.Schema, outputs int) (*xgb.Booster, error) {
	b, err := xgb.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(b, schema); err != nil {
		return nil, fmt.Errorf("model: %s: %w", path, err)
	}
	if b.NumTargets() != outputs {
		return nil, fmt.Errorf("model: %s produces %d outputs, want %d", path, b.NumTargets(), outputs)
	}
	return b, nil
}
