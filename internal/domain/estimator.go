package domain

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// Estimator converts raw per-array weather series into a combined production
// estimate. It holds no mutable state between calls; every Estimate
// invocation is independent.
type Estimator struct {
	cfg     PlantConfig
	acWatts int
	bounded bool
	sun     SunPositionProvider
	logger  Logger
}

// NewEstimator validates the plant configuration and returns an estimator.
// A nil temperature model defaults to the NOCT model.
func NewEstimator(cfg PlantConfig, sun SunPositionProvider, logger Logger) (*Estimator, error) {
	if len(cfg.Arrays) == 0 {
		return nil, &ConfigError{Reason: "at least one array must be configured"}
	}
	for i, arr := range cfg.Arrays {
		if arr.DcKwp <= 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("array %d: dcKwp must be positive", i)}
		}
		if arr.Efficiency <= 0 || arr.Efficiency > 1 {
			return nil, &ConfigError{Reason: fmt.Sprintf("array %d: efficiency must be in (0, 1]", i)}
		}
		if arr.DampingMorning < 0 || arr.DampingMorning > 1 ||
			arr.DampingEvening < 0 || arr.DampingEvening > 1 {
			return nil, &ConfigError{Reason: fmt.Sprintf("array %d: damping factors must be in [0, 1]", i)}
		}
		if arr.UseHorizon && arr.Horizon == nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("array %d: useHorizon requires a horizon profile", i)}
		}
	}
	if cfg.TempModel == nil {
		cfg.TempModel = NOCTModel{}
	}
	return &Estimator{
		cfg:     cfg,
		acWatts: int(math.Round(cfg.AcKwp * 1000)),
		bounded: cfg.AcKwp > 0,
		sun:     sun,
		logger:  logger,
	}, nil
}

// arrayOutput is the immutable result of one array pipeline. Arrays are
// merged in a separate reduce step; pipelines never write shared state.
type arrayOutput struct {
	avg  []PowerPoint
	inst []PowerPoint
}

// Estimate fetches the weather series for every array, runs the per-array
// pipelines and reduces them into one EstimateBundle. All arrays must resolve
// to the same UTC offset; a mismatch is a fatal configuration error.
func (e *Estimator) Estimate(ctx context.Context, weather WeatherSeriesProvider) (*EstimateBundle, error) {
	e.logger.Info("starting production estimate", "arrays", len(e.cfg.Arrays))

	var (
		outputs     []arrayOutput
		loc         *time.Location
		offset      int
		offsetKnown bool
	)
	for i, arr := range e.cfg.Arrays {
		series, err := weather.ArraySeries(ctx, arr)
		if err != nil {
			return nil, fmt.Errorf("array %d: fetch weather series: %w", i, err)
		}
		if !offsetKnown {
			offset = series.UTCOffsetSeconds
			loc = series.Location
			offsetKnown = true
		} else if series.UTCOffsetSeconds != offset {
			return nil, &ConfigError{Reason: fmt.Sprintf(
				"array %d resolves to UTC offset %ds, other arrays use %ds", i, series.UTCOffsetSeconds, offset)}
		}

		out := e.estimateArray(arr, series)
		e.logger.Debug("array pipeline complete",
			"array", i, "samples", len(series.Samples), "points", len(out.inst))
		outputs = append(outputs, out)
	}
	if loc == nil {
		loc = time.UTC
	}

	bundle := e.reduce(loc, outputs)
	e.logger.Info("production estimate complete",
		"watts_points", len(bundle.Watts), "hours", len(bundle.WhPeriod), "days", len(bundle.WhDays))
	return bundle, nil
}

// estimateArray runs the per-array pipeline. Index 0 is always skipped: the
// average basis needs the previous sample. Samples missing any required field
// at i or i-1 are dropped without substitution.
func (e *Estimator) estimateArray(arr ArrayConfig, series *ArraySeries) arrayOutput {
	needWind := e.cfg.TempModel.RequiresWind()
	dcWp := arr.DcKwp * 1000

	days := make(map[string]DaySunTimes, len(series.Days))
	for _, d := range series.Days {
		days[d.Date.Format("2006-01-02")] = d
	}

	var out arrayOutput
	for i := 1; i < len(series.Samples); i++ {
		prev := &series.Samples[i-1]
		cur := &series.Samples[i]
		if !sampleComplete(arr, needWind, prev, cur) {
			continue
		}

		gAvg := *cur.GtiAvg
		gInst := *cur.GtiInst
		if arr.UseHorizon {
			pos := e.sun.Position(cur.Time, arr.Latitude, arr.Longitude)
			if arr.Horizon.Shades(pos) {
				// Shaded: only diffuse light reaches the panel. With partial
				// shading the diffuse fraction blends the two components,
				// otherwise the direct contribution is dropped entirely.
				fAvg, fInst := 1.0, 1.0
				if arr.PartialShading {
					fAvg = diffuseFraction(*cur.DiffuseAvg, *cur.DirectAvg)
					fInst = diffuseFraction(*cur.DiffuseInst, *cur.DirectInst)
				}
				gAvg = *cur.DiffuseAvg * fAvg
				gInst = *cur.DiffuseInst * fInst
			}
		}

		// Average basis blends the readings around the interval; the instant
		// basis uses the reading attributed to the interval start.
		tempAvg := (*prev.Temperature + *cur.Temperature) / 2
		tempInst := *prev.Temperature
		var windAvg, windInst float64
		if needWind {
			windAvg = (*prev.WindSpeed + *cur.WindSpeed) / 2
			windInst = *prev.WindSpeed
		}

		start := cur.Time.Add(-SampleInterval)
		eff := arr.Efficiency * e.dampingAt(arr, days, start)

		out.avg = append(out.avg, PowerPoint{
			Time:  start,
			Watts: generatedPower(gAvg, e.cfg.TempModel.CellTemperature(gAvg, tempAvg, windAvg), dcWp, eff),
		})
		out.inst = append(out.inst, PowerPoint{
			Time:  start,
			Watts: generatedPower(gInst, e.cfg.TempModel.CellTemperature(gInst, tempInst, windInst), dcWp, eff),
		})
	}
	return out
}

// sampleComplete reports whether all fields the array configuration requires
// are present at i and i-1.
func sampleComplete(arr ArrayConfig, needWind bool, prev, cur *RawSample) bool {
	if cur.GtiAvg == nil || cur.GtiInst == nil {
		return false
	}
	if prev.Temperature == nil || cur.Temperature == nil {
		return false
	}
	if needWind && (prev.WindSpeed == nil || cur.WindSpeed == nil) {
		return false
	}
	if arr.UseHorizon {
		if cur.DiffuseAvg == nil || cur.DiffuseInst == nil ||
			cur.DirectAvg == nil || cur.DirectInst == nil {
			return false
		}
	}
	return true
}

// dampingAt returns the damping multiplier for a point in time, preferring
// the day boundaries supplied with the weather series and falling back to the
// sun-position provider. Arrays without damping skip the sun lookup.
func (e *Estimator) dampingAt(arr ArrayConfig, days map[string]DaySunTimes, t time.Time) float64 {
	if arr.DampingMorning == 0 && arr.DampingEvening == 0 {
		return 1.0
	}
	var sunrise, sunset time.Time
	if d, ok := days[t.Format("2006-01-02")]; ok {
		sunrise, sunset = d.Sunrise, d.Sunset
	} else {
		sunrise, sunset = e.sun.SunTimes(t, arr.Latitude, arr.Longitude)
	}
	return dampingFactor(t, sunrise, sunset, arr.DampingMorning, arr.DampingEvening)
}

// reduce merges the per-array series into the combined bundle: sum across
// arrays per timestamp, clamp to the AC capacity strictly after summation,
// bucket average-basis points into hourly means, and sum hours into days.
func (e *Estimator) reduce(loc *time.Location, outputs []arrayOutput) *EstimateBundle {
	avgSum := make(map[int64]int)
	instSum := make(map[int64]int)
	for _, out := range outputs {
		for _, p := range out.avg {
			avgSum[p.Time.Unix()] += p.Watts
		}
		for _, p := range out.inst {
			instSum[p.Time.Unix()] += p.Watts
		}
	}

	avgPoints := e.sortedClamped(avgSum, loc)
	instPoints := e.sortedClamped(instSum, loc)

	// Hourly buckets take the arithmetic mean of whatever samples landed in
	// the hour; gaps make the count vary per bucket.
	hourSum := make(map[int64]int)
	hourCount := make(map[int64]int)
	for _, p := range avgPoints {
		h := floorHour(p.Time).Unix()
		hourSum[h] += p.Watts
		hourCount[h]++
	}
	whPeriod := make([]PowerPoint, 0, len(hourSum))
	for h, sum := range hourSum {
		whPeriod = append(whPeriod, PowerPoint{
			Time:  time.Unix(h, 0).In(loc),
			Watts: int(math.Round(float64(sum) / float64(hourCount[h]))),
		})
	}
	sort.Slice(whPeriod, func(i, j int) bool { return whPeriod[i].Time.Before(whPeriod[j].Time) })

	daySum := make(map[int64]int)
	for _, p := range whPeriod {
		daySum[floorDay(p.Time).Unix()] += p.Watts
	}
	whDays := make([]EnergyDay, 0, len(daySum))
	for d, wh := range daySum {
		whDays = append(whDays, EnergyDay{Day: time.Unix(d, 0).In(loc), Wh: wh})
	}
	sort.Slice(whDays, func(i, j int) bool { return whDays[i].Day.Before(whDays[j].Day) })

	return &EstimateBundle{
		Watts:    instPoints,
		WhPeriod: whPeriod,
		WhDays:   whDays,
		Location: loc,
	}
}

// sortedClamped turns a timestamp→watts accumulator into an ordered series,
// applying the inverter AC ceiling.
func (e *Estimator) sortedClamped(sum map[int64]int, loc *time.Location) []PowerPoint {
	points := make([]PowerPoint, 0, len(sum))
	for ts, w := range sum {
		if e.bounded && w > e.acWatts {
			w = e.acWatts
		}
		points = append(points, PowerPoint{Time: time.Unix(ts, 0).In(loc), Watts: w})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points
}

// floorHour floors t to the wall-clock hour in its own location.
func floorHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// floorDay floors t to midnight in its own location.
func floorDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
