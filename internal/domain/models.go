package domain

import (
	"context"
	"time"
)

// Panel physics constants.
//
// STC is the industry rating reference (25°C cell, 1000 W/m²); NOCT is the
// nominal operating condition (45°C cell, 800 W/m², 20°C ambient, 1 m/s wind)
// used to back out real-world cell temperature.
const (
	// STCIrradiance is the Standard Test Condition reference irradiance (W/m²)
	STCIrradiance = 1000.0

	// STCCellTemperature is the Standard Test Condition cell temperature (°C)
	STCCellTemperature = 25.0

	// AlphaTemp is the power temperature coefficient (1/°C). Output drops as
	// the cell heats above the STC reference.
	AlphaTemp = -0.005

	// NOCTIrradiance is the NOCT test irradiance (W/m²)
	NOCTIrradiance = 800.0

	// NOCTCellTemperature is the nominal operating cell temperature (°C)
	NOCTCellTemperature = 45.0

	// NOCTAmbientTemperature is the NOCT test ambient temperature (°C)
	NOCTAmbientTemperature = 20.0

	// NOCTWindSpeed is the NOCT test wind speed (m/s)
	NOCTWindSpeed = 1.0

	// CellEfficiency is the assumed multi-crystalline cell efficiency
	CellEfficiency = 0.12

	// TransmittanceAbsorption is the glazing transmittance-absorption product
	TransmittanceAbsorption = 0.9
)

// SampleInterval is the reporting interval of the weather feed. Averaged
// values cover the interval ending at the sample timestamp, so emitted points
// are shifted back by one interval.
const SampleInterval = 15 * time.Minute

// Logger defines the interface for logging
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// ArrayConfig describes one PV array. Arrays share an estimation run but are
// otherwise independent.
type ArrayConfig struct {
	Latitude  float64
	Longitude float64

	// Azimuth is the panel azimuth in degrees (0=N, 90=E, 180=S, 270=W).
	Azimuth float64
	// Declination is the panel tilt from horizontal in degrees.
	Declination float64

	DcKwp      float64 // DC capacity in kWp
	Efficiency float64 // DC efficiency factor, typically 0.8-1.0

	// DampingMorning and DampingEvening ramp efficiency down towards
	// sunrise/sunset. 0 disables damping, 1 means zero output at the boundary.
	DampingMorning float64
	DampingEvening float64

	// UseHorizon enables horizon shading for this array. PartialShading
	// additionally blends the diffuse fraction into shaded intervals.
	UseHorizon     bool
	PartialShading bool
	Horizon        *HorizonProfile
}

// PlantConfig is the validated configuration for one estimation run.
type PlantConfig struct {
	Arrays []ArrayConfig

	// AcKwp is the inverter AC capacity in kW. Zero or negative means
	// unbounded (no clipping).
	AcKwp float64

	// TempModel estimates cell temperature from ambient conditions.
	TempModel CellTemperatureModel
}

// ArrayParams carries the per-array configuration as parallel slices, the
// shape configuration files naturally produce. Latitude, Longitude, Azimuth,
// Declination and DcKwp must all have the same length; Efficiency and the
// damping factors may be empty (defaulted) or a single value (broadcast).
type ArrayParams struct {
	Latitude    []float64
	Longitude   []float64
	Azimuth     []float64
	Declination []float64
	DcKwp       []float64

	Efficiency     []float64
	DampingMorning []float64
	DampingEvening []float64
}

// RawSample is one weather sample for one array. Pointer fields are nil when
// the feed has a gap; a sample missing any field required by the array's
// configuration is dropped entirely.
type RawSample struct {
	Time time.Time

	GtiAvg  *float64 // W/m², averaged over the interval ending at Time
	GtiInst *float64 // W/m², instantaneous

	DiffuseAvg  *float64
	DiffuseInst *float64
	DirectAvg   *float64
	DirectInst  *float64

	Temperature *float64 // °C ambient
	WindSpeed   *float64 // m/s
}

// DaySunTimes holds the sunrise and sunset for one calendar day.
type DaySunTimes struct {
	Date    time.Time
	Sunrise time.Time
	Sunset  time.Time
}

// ArraySeries is the decoded weather time series for one array, as supplied
// by the weather collaborator. All timestamps carry the same fixed UTC offset.
type ArraySeries struct {
	Location         *time.Location
	UTCOffsetSeconds int
	Samples          []RawSample
	Days             []DaySunTimes
}

// WeatherSeriesProvider supplies the raw weather series for an array.
// Implementations own transport, authentication and retries.
type WeatherSeriesProvider interface {
	ArraySeries(ctx context.Context, array ArrayConfig) (*ArraySeries, error)
}

// SunPosition is a solar position in degrees. Azimuth uses the compass
// convention (0=N, measured clockwise), Altitude is elevation above the
// horizon.
type SunPosition struct {
	Azimuth  float64
	Altitude float64
}

// SunPositionProvider computes solar geometry for a location.
type SunPositionProvider interface {
	// Position returns the sun's azimuth and altitude at the given instant.
	Position(t time.Time, latitude, longitude float64) SunPosition

	// SunTimes returns sunrise and sunset for the day containing date, in
	// date's location.
	SunTimes(date time.Time, latitude, longitude float64) (sunrise, sunset time.Time)
}

// PowerPoint is one estimated power value attributed to the start of its
// reporting interval.
type PowerPoint struct {
	Time  time.Time
	Watts int
}

// EnergyDay is the estimated energy for one calendar day.
type EnergyDay struct {
	Day time.Time
	Wh  int
}

// BuildArrays normalizes parallel configuration slices into per-array records,
// enforcing that all list-valued parameters have equal length. Downstream code
// never branches on scalar-vs-list again.
func BuildArrays(p ArrayParams) ([]ArrayConfig, error) {
	n := len(p.DcKwp)
	if n == 0 {
		return nil, &ConfigError{Reason: "at least one array must be configured"}
	}
	for name, l := range map[string]int{
		"latitude":    len(p.Latitude),
		"longitude":   len(p.Longitude),
		"azimuth":     len(p.Azimuth),
		"declination": len(p.Declination),
	} {
		if l != n {
			return nil, &ConfigError{Reason: "parameter " + name + " must have the same length as dcKwp"}
		}
	}

	efficiency, err := broadcast("efficiency", p.Efficiency, n, 1.0)
	if err != nil {
		return nil, err
	}
	dampingMorning, err := broadcast("dampingMorning", p.DampingMorning, n, 0.0)
	if err != nil {
		return nil, err
	}
	dampingEvening, err := broadcast("dampingEvening", p.DampingEvening, n, 0.0)
	if err != nil {
		return nil, err
	}

	arrays := make([]ArrayConfig, n)
	for i := 0; i < n; i++ {
		arrays[i] = ArrayConfig{
			Latitude:       p.Latitude[i],
			Longitude:      p.Longitude[i],
			Azimuth:        p.Azimuth[i],
			Declination:    p.Declination[i],
			DcKwp:          p.DcKwp[i],
			Efficiency:     efficiency[i],
			DampingMorning: dampingMorning[i],
			DampingEvening: dampingEvening[i],
		}
	}
	return arrays, nil
}

// broadcast expands an optional scalar parameter to the array count.
func broadcast(name string, values []float64, n int, def float64) ([]float64, error) {
	switch len(values) {
	case 0:
		out := make([]float64, n)
		for i := range out {
			out[i] = def
		}
		return out, nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = values[0]
		}
		return out, nil
	case n:
		return values, nil
	default:
		return nil, &ConfigError{Reason: "parameter " + name + " must be a single value or have the same length as dcKwp"}
	}
}
