package forecast

import (
	"fmt"
	"sync"

	"cuacadesa/internal/config"
	"cuacadesa/internal/log"
)

// Registry holds the loaded model artifacts of every variable.
// It is built once at startup and read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifacts
}

func NewRegistry() *Registry {
	return &Registry{artifacts: make(map[string]*Artifacts)}
}

// Register stores the artifacts of a variable
func (r *Registry) Register(variable string, a *Artifacts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[variable] = a
}

// Get returns the artifacts of a variable, or nil
func (r *Registry) Get(variable string) *Artifacts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.artifacts[variable]
}

// LoadRegistry loads the model and scalers of each variable that names a
// model file. A missing model is an error; a missing or broken scaler is
// logged and the variable runs unscaled.
func LoadRegistry(cfg *config.Config) (*Registry, error) {
	reg := NewRegistry()
	for _, name := range cfg.VariableNames() {
		v := cfg.Variables[name]
		if v.ModelFile == "" {
			continue
		}

		model, err := LoadModel(v.ModelFile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		a := &Artifacts{Model: model}
		if s := loadOptionalScaler(v.ScalerTarget); s != nil {
			a.TargetScaler = s
		}
		if s := loadOptionalScaler(v.ScalerCovariate); s != nil {
			a.CovariateScaler = s
		}
		reg.Register(name, a)
		log.Infof("Loaded %s model %s (input_dim=%d, chunk=%d)", name, v.ModelFile, model.Channels, model.ChunkLength)
	}
	return reg, nil
}

func loadOptionalScaler(path string) *MinMaxScaler {
	if path == "" {
		return nil
	}
	s, err := LoadScaler(path)
	if err != nil {
		log.Warnf("Scaler not used: %v", err)
		return nil
	}
	return s
}

// Deps are the shared dependencies of the providers
type Deps struct {
	Registry *Registry
	Redis    StreamClient
	Clock    Clock
}

// BuildProviders creates the configured provider for each variable
func BuildProviders(cfg *config.Config, deps Deps) (map[string]Provider, error) {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}

	out := make(map[string]Provider, len(cfg.Variables))
	for _, name := range cfg.VariableNames() {
		v := cfg.Variables[name]

		var p Provider
		switch cfg.Forecast.Provider {
		case config.ProviderLive, config.ProviderBackfill:
			if deps.Registry == nil || deps.Registry.Get(name) == nil {
				return nil, fmt.Errorf("%w: no model loaded for %s", ErrMissingArtifact, name)
			}
			p = NewLiveModel(name, deps.Registry.Get(name))
			if cfg.Forecast.Provider == config.ProviderBackfill {
				p = NewBackfillingModel(p, v.CSV, cfg.Precision(), deps.Clock)
			}
		case config.ProviderPrecomputed:
			p = NewPrecomputedTable(v.ForecastCSV, deps.Clock, cfg.Forecast.FromToday)
		case config.ProviderRemote:
			if deps.Redis == nil {
				return nil, fmt.Errorf("the remote provider needs a redis client")
			}
			p = NewRemoteModel(name, deps.Redis, RemoteOptions{
				InputStream:  cfg.Forecast.Remote.InputStream,
				OutputStream: cfg.Forecast.Remote.OutputStream,
				Timeout:      cfg.Forecast.Remote.Timeout,
			})
		default:
			return nil, fmt.Errorf("unknown forecast provider %q", cfg.Forecast.Provider)
		}

		if cfg.Forecast.RateLimit > 0 {
			p = NewRateLimited(p, cfg.Forecast.RateLimit, 1)
		}
		out[name] = p
	}
	return out, nil
}

// Setup loads the artifacts the configured provider needs and builds every
// variable's provider. redis is only used by the remote provider and may be nil.
func Setup(cfg *config.Config, redis StreamClient) (map[string]Provider, error) {
	deps := Deps{Redis: redis, Clock: SystemClock{}}

	switch cfg.Forecast.Provider {
	case config.ProviderLive, config.ProviderBackfill:
		reg, err := LoadRegistry(cfg)
		if err != nil {
			return nil, err
		}
		deps.Registry = reg
	}

	return BuildProviders(cfg, deps)
}
