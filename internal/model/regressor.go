package model

import (
	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/features"
)

// Regressor is a single multi-output model scoring source categories
type Regressor struct {
	state   State
	schema  features.Schema
	sources []string
	model   Predictor
}

// NewRegressor builds a loaded regressor from an in-memory predictor
func NewRegressor(version string, schema features.Schema, sources []string, p Predictor) *Regressor {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return &Regressor{
		state: State{
			Loaded:         true,
			PredictionType: domain.PredictionML,
			ModelVersion:   version,
			Features:       append([]string(nil), schema...),
		},
		schema:  schema,
		sources: append([]string(nil), sources...),
		model:   p,
	}
}

// State returns a copy of the load outcome
func (r *Regressor) State() State {
	return r.state.clone()
}

// Loaded reports whether the model is available
func (r *Regressor) Loaded() bool {
	return r.state.Loaded
}

// Schema returns the declared feature order
func (r *Regressor) Schema() features.Schema {
	return r.schema
}

// Sources returns the output categories in model output order
func (r *Regressor) Sources() []string {
	return r.sources
}

// Model returns the loaded predictor
func (r *Regressor) Model() Predictor {
	return r.model
}

// LoadRegressor loads the source attribution model found in dir
func (l *Loader) LoadRegressor(dir string) *Regressor {
	log := l.log.WithField("component", "attribution_model").WithField("dir", dir)

	m, err := readManifest(dir)
	if err != nil {
		log.WithError(err).Warn("source attribution model not found, using rule-based attribution")
		return &Regressor{state: l.notLoaded(dir, DefaultRegressorVersion, err.Error())}
	}

	version := m.ModelVersion
	if version == "" {
		version = DefaultRegressorVersion
	}
	sources := m.Sources
	if len(sources) == 0 {
		sources = DefaultSources
	}
	schema := features.Schema(m.Features)
	entry := m.ModelPaths[0]

	path, ok := resolve(dir, entry)
	if !ok {
		log.WithField("model", entry).Warn("regressor file not found")
		state := l.notLoaded(dir, version, "model file not found")
		state.Missing = []string{entry}
		return &Regressor{state: state}
	}
	b, err := l.loadBooster(path, schema, len(sources))
	if err != nil {
		log.WithField("model", entry).WithError(err).Error("regressor rejected")
		state := l.notLoaded(dir, version, err.Error())
		state.Missing = []string{entry}
		return &Regressor{state: state}
	}

	log.WithField("sources", len(sources)).Info("source attribution model loaded")
	return &Regressor{
		state: State{
			Loaded:         true,
			PredictionType: domain.PredictionML,
			ModelVersion:   version,
			Dir:            dir,
			Features:       append([]string(nil), schema...),
			Artifacts:      []string{entry},
			LoadedAt:       l.clock.Now(),
		},
		schema:  schema,
		sources: append([]string(nil), sources...),
		model:   b,
	}
}
