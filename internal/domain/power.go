package domain

import (
	"math"
	"time"
)

// generatedPower converts irradiance and cell temperature into instantaneous
// DC power in watts:
//
//	P = Pmax * (G/Gstc) * (1 + α*(Tc - Tstc)) * η
//
// The result is rounded and clamped at zero; a strongly negative temperature
// derate never produces negative power.
func generatedPower(irradiance, cellTemp, dcWattPeak, efficiency float64) int {
	p := dcWattPeak
	p *= irradiance / STCIrradiance
	p *= 1 + AlphaTemp*(cellTemp-STCCellTemperature)
	p *= efficiency
	if p < 0 {
		return 0
	}
	return int(math.Round(p))
}

// dampingFactor returns the time-of-day efficiency multiplier in [0, 1].
//
// The morning window runs from sunrise to the midpoint of the solar day and
// ramps linearly from 1-morning up to 1.0; the evening window mirrors it,
// ramping from 1.0 at the midpoint down to 1-evening at sunset. Outside both
// windows the multiplier is 1.0. A factor of 0 disables damping for its
// window; a factor of 1 drives output to zero at the window boundary.
func dampingFactor(t, sunrise, sunset time.Time, morning, evening float64) float64 {
	if morning == 0 && evening == 0 {
		return 1.0
	}
	if t.Before(sunrise) || t.After(sunset) {
		return 1.0
	}

	midpoint := sunrise.Add(sunset.Sub(sunrise) / 2)

	if t.Before(midpoint) {
		if morning == 0 {
			return 1.0
		}
		window := midpoint.Sub(sunrise)
		if window <= 0 {
			return 1.0
		}
		frac := float64(t.Sub(sunrise)) / float64(window)
		return clampUnit(1 - morning + morning*frac)
	}

	if evening == 0 {
		return 1.0
	}
	window := sunset.Sub(midpoint)
	if window <= 0 {
		return 1.0
	}
	frac := float64(sunset.Sub(t)) / float64(window)
	return clampUnit(1 - evening + evening*frac)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
