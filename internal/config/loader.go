package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/b0d/solar-estimate/internal/domain"
)

// FloatList accepts either a single scalar or a sequence in YAML, so plant
// parameters can be written per-array or once for the whole plant.
type FloatList []float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *FloatList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var v float64
		if err := value.Decode(&v); err != nil {
			return err
		}
		*f = FloatList{v}
		return nil
	}
	var vs []float64
	if err := value.Decode(&vs); err != nil {
		return err
	}
	*f = FloatList(vs)
	return nil
}

// fileConfig is the raw YAML document.
type fileConfig struct {
	Plant struct {
		Latitude    FloatList `yaml:"latitude"`
		Longitude   FloatList `yaml:"longitude"`
		Azimuth     FloatList `yaml:"azimuth"`
		Declination FloatList `yaml:"declination"`
		DcKwp       FloatList `yaml:"dcKwp"`
		Efficiency  FloatList `yaml:"efficiency"`

		DampingMorning FloatList `yaml:"dampingMorning"`
		DampingEvening FloatList `yaml:"dampingEvening"`

		AcKwp float64 `yaml:"acKwp"`

		TemperatureModel string `yaml:"temperatureModel"`
		RossMounting     string `yaml:"rossMounting"`

		UseHorizon     bool        `yaml:"useHorizon"`
		PartialShading bool        `yaml:"partialShading"`
		Horizon        [][]float64 `yaml:"horizon"`
	} `yaml:"plant"`

	Weather WeatherSettings `yaml:"weather"`
}

// WeatherSettings configures the weather API client.
type WeatherSettings struct {
	BaseURL           string `yaml:"baseUrl"`
	APIKey            string `yaml:"apiKey"`
	PastDays          int    `yaml:"pastDays"`
	ForecastDays      int    `yaml:"forecastDays"`
	TimeoutSeconds    int    `yaml:"timeoutSeconds"`
	RetryAttempts     int    `yaml:"retryAttempts"`
	RetryDelaySeconds int    `yaml:"retryDelaySeconds"`
}

// RetryDelay returns the configured retry delay as a duration.
func (w WeatherSettings) RetryDelay() time.Duration {
	return time.Duration(w.RetryDelaySeconds) * time.Second
}

// Config is the validated application configuration.
type Config struct {
	Plant   domain.PlantConfig
	Weather WeatherSettings
}

// LoadConfig loads and validates the YAML configuration file.
func LoadConfig(configPath string) (*Config, error) {
	if strings.HasPrefix(configPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, configPath[1:])
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	arrays, err := domain.BuildArrays(domain.ArrayParams{
		Latitude:       raw.Plant.Latitude,
		Longitude:      raw.Plant.Longitude,
		Azimuth:        raw.Plant.Azimuth,
		Declination:    raw.Plant.Declination,
		DcKwp:          raw.Plant.DcKwp,
		Efficiency:     raw.Plant.Efficiency,
		DampingMorning: raw.Plant.DampingMorning,
		DampingEvening: raw.Plant.DampingEvening,
	})
	if err != nil {
		return nil, err
	}

	var horizon *domain.HorizonProfile
	if raw.Plant.UseHorizon {
		points := make([]domain.HorizonPoint, 0, len(raw.Plant.Horizon))
		for i, p := range raw.Plant.Horizon {
			if len(p) != 2 {
				return nil, &domain.ConfigError{Reason: fmt.Sprintf("horizon point %d must be an [azimuth, elevation] pair", i)}
			}
			points = append(points, domain.HorizonPoint{Azimuth: p[0], Elevation: p[1]})
		}
		horizon, err = domain.NewHorizonProfile(points)
		if err != nil {
			return nil, err
		}
	}
	for i := range arrays {
		arrays[i].UseHorizon = raw.Plant.UseHorizon
		arrays[i].PartialShading = raw.Plant.PartialShading
		arrays[i].Horizon = horizon
	}

	tempModel, err := buildTempModel(raw.Plant.TemperatureModel, raw.Plant.RossMounting)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Plant: domain.PlantConfig{
			Arrays:    arrays,
			AcKwp:     raw.Plant.AcKwp,
			TempModel: tempModel,
		},
		Weather: raw.Weather,
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// buildTempModel selects the cell-temperature model. The NOCT model is the
// default; the Ross model requires a mounting category.
func buildTempModel(name, mounting string) (domain.CellTemperatureModel, error) {
	switch name {
	case "", "noct":
		return domain.NOCTModel{}, nil
	case "ross":
		return domain.NewRossModel(mounting)
	default:
		return nil, &domain.ConfigError{Reason: fmt.Sprintf("unknown temperature model %q", name)}
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SOLAR_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("SOLAR_BASE_URL"); v != "" {
		cfg.Weather.BaseURL = v
	}
}
