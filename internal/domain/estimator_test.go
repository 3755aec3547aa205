package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (mockLogger) Info(string, ...interface{})  {}
func (mockLogger) Error(string, ...interface{}) {}
func (mockLogger) Debug(string, ...interface{}) {}
func (mockLogger) Warn(string, ...interface{})  {}

// stubSun pins the solar geometry so pipelines are deterministic.
type stubSun struct {
	pos     SunPosition
	sunrise time.Time
	sunset  time.Time
}

func (s stubSun) Position(time.Time, float64, float64) SunPosition { return s.pos }

func (s stubSun) SunTimes(time.Time, float64, float64) (time.Time, time.Time) {
	return s.sunrise, s.sunset
}

// stubWeather hands out one prepared series per array, in call order.
type stubWeather struct {
	series []*ArraySeries
	calls  int
}

func (s *stubWeather) ArraySeries(context.Context, ArrayConfig) (*ArraySeries, error) {
	out := s.series[s.calls%len(s.series)]
	s.calls++
	return out, nil
}

func f(v float64) *float64 { return &v }

var cet = time.FixedZone("", 3600)

// plainSample builds a gap-free sample without the diffuse/direct split.
func plainSample(at time.Time, gti, temp, wind float64) RawSample {
	return RawSample{
		Time:        at,
		GtiAvg:      f(gti),
		GtiInst:     f(gti),
		Temperature: f(temp),
		WindSpeed:   f(wind),
	}
}

func newTestEstimator(t *testing.T, cfg PlantConfig, sun SunPositionProvider) *Estimator {
	t.Helper()
	est, err := NewEstimator(cfg, sun, mockLogger{})
	require.NoError(t, err)
	return est
}

func TestEstimateGoldenNOCT(t *testing.T) {
	// Two consecutive samples, NOCT model, 1 kWp, efficiency 1, no wind.
	// For G=200 W/m² and 17°C ambient the documented chain gives:
	//   Tc = 17 + (200/800) * (10.91/8.91) * 25 * (1 - 0.12/0.9) = 23.6325...
	//   P  = 1000 * 0.2 * (1 - 0.005*(Tc - 25)) = 201.3674... -> 201 W
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, cet)
	series := &ArraySeries{
		Location:         cet,
		UTCOffsetSeconds: 3600,
		Samples: []RawSample{
			plainSample(base, 100, 17, 0),
			plainSample(base.Add(SampleInterval), 200, 17, 0),
		},
	}

	est := newTestEstimator(t, PlantConfig{
		Arrays: []ArrayConfig{{
			Latitude: testLatitude, Longitude: testLongitude,
			Azimuth: 180, Declination: 30, DcKwp: 1.0, Efficiency: 1.0,
		}},
		TempModel: NOCTModel{},
	}, stubSun{})

	bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
	require.NoError(t, err)

	// The single point is shifted back to the interval start.
	require.Len(t, bundle.Watts, 1)
	assert.True(t, bundle.Watts[0].Time.Equal(base))
	assert.Equal(t, 201, bundle.Watts[0].Watts)

	require.Len(t, bundle.WhPeriod, 1)
	assert.True(t, bundle.WhPeriod[0].Time.Equal(base.Truncate(time.Hour).In(cet)))
	assert.Equal(t, 201, bundle.WhPeriod[0].Watts)

	require.Len(t, bundle.WhDays, 1)
	assert.Equal(t, 201, bundle.WhDays[0].Wh)
}

func TestEstimateBasesUsePreviousSample(t *testing.T) {
	// The instant basis takes the ambient reading at i-1, the average basis
	// the mean of i-1 and i.
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, cet)
	series := &ArraySeries{
		Location:         cet,
		UTCOffsetSeconds: 3600,
		Samples: []RawSample{
			plainSample(base, 100, 15, 0),
			plainSample(base.Add(SampleInterval), 200, 17, 0),
		},
	}

	est := newTestEstimator(t, PlantConfig{
		Arrays:    []ArrayConfig{{DcKwp: 1.0, Efficiency: 1.0}},
		TempModel: NOCTModel{},
	}, stubSun{})

	bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
	require.NoError(t, err)

	require.Len(t, bundle.Watts, 1)
	assert.Equal(t, 203, bundle.Watts[0].Watts) // Tamb = 15 (sample i-1)
	require.Len(t, bundle.WhPeriod, 1)
	assert.Equal(t, 202, bundle.WhPeriod[0].Watts) // Tamb = 16 (mean of 15, 17)
}

func TestEstimateMultiArraySumAndClamp(t *testing.T) {
	// Ross well-cooled with G=500 and 15°C ambient lands exactly at STC cell
	// temperature, so a 0.2 kWp array produces exactly 100 W.
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, cet)
	series := &ArraySeries{
		Location:         cet,
		UTCOffsetSeconds: 3600,
		Samples: []RawSample{
			plainSample(base, 500, 15, 0),
			plainSample(base.Add(SampleInterval), 500, 15, 0),
		},
	}
	ross, err := NewRossModel("well-cooled")
	require.NoError(t, err)
	arrays := []ArrayConfig{
		{DcKwp: 0.2, Efficiency: 1.0},
		{DcKwp: 0.2, Efficiency: 1.0},
	}

	t.Run("unbounded sums across arrays", func(t *testing.T) {
		est := newTestEstimator(t, PlantConfig{Arrays: arrays, TempModel: ross}, stubSun{})
		bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
		require.NoError(t, err)
		require.Len(t, bundle.Watts, 1)
		assert.Equal(t, 200, bundle.Watts[0].Watts)
	})

	t.Run("AC ceiling clamps after summation", func(t *testing.T) {
		est := newTestEstimator(t, PlantConfig{Arrays: arrays, AcKwp: 0.15, TempModel: ross}, stubSun{})
		bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
		require.NoError(t, err)
		require.Len(t, bundle.Watts, 1)
		assert.Equal(t, 150, bundle.Watts[0].Watts)
		require.Len(t, bundle.WhPeriod, 1)
		assert.Equal(t, 150, bundle.WhPeriod[0].Watts)
	})
}

func TestEstimateUTCOffsetMismatch(t *testing.T) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, cet)
	samples := []RawSample{
		plainSample(base, 500, 15, 0),
		plainSample(base.Add(SampleInterval), 500, 15, 0),
	}
	weather := &stubWeather{series: []*ArraySeries{
		{Location: cet, UTCOffsetSeconds: 3600, Samples: samples},
		{Location: time.UTC, UTCOffsetSeconds: 0, Samples: samples},
	}}

	est := newTestEstimator(t, PlantConfig{
		Arrays: []ArrayConfig{
			{DcKwp: 1.0, Efficiency: 1.0},
			{DcKwp: 1.0, Efficiency: 1.0},
		},
	}, stubSun{})

	_, err := est.Estimate(context.Background(), weather)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestEstimateDropsIncompleteSamples(t *testing.T) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, cet)
	gap := plainSample(base.Add(SampleInterval), 500, 0, 0)
	gap.Temperature = nil
	series := &ArraySeries{
		Location:         cet,
		UTCOffsetSeconds: 3600,
		Samples: []RawSample{
			plainSample(base, 500, 15, 0),
			gap, // i=1: missing ambient drops this point
			plainSample(base.Add(2*SampleInterval), 500, 15, 0), // i=2: previous is incomplete
		},
	}

	est := newTestEstimator(t, PlantConfig{
		Arrays:    []ArrayConfig{{DcKwp: 1.0, Efficiency: 1.0}},
		TempModel: NOCTModel{},
	}, stubSun{})

	bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
	require.NoError(t, err)
	assert.Empty(t, bundle.Watts)
	assert.Empty(t, bundle.WhPeriod)
	assert.Empty(t, bundle.WhDays)
}

func TestEstimateWindOnlyRequiredByNOCT(t *testing.T) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, cet)
	noWind := func(at time.Time) RawSample {
		s := plainSample(at, 500, 15, 0)
		s.WindSpeed = nil
		return s
	}
	series := &ArraySeries{
		Location:         cet,
		UTCOffsetSeconds: 3600,
		Samples:          []RawSample{noWind(base), noWind(base.Add(SampleInterval))},
	}
	arrays := []ArrayConfig{{DcKwp: 0.2, Efficiency: 1.0}}

	t.Run("NOCT drops samples without wind", func(t *testing.T) {
		est := newTestEstimator(t, PlantConfig{Arrays: arrays, TempModel: NOCTModel{}}, stubSun{})
		bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
		require.NoError(t, err)
		assert.Empty(t, bundle.Watts)
	})

	t.Run("Ross does not need wind", func(t *testing.T) {
		ross, err := NewRossModel("well-cooled")
		require.NoError(t, err)
		est := newTestEstimator(t, PlantConfig{Arrays: arrays, TempModel: ross}, stubSun{})
		bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
		require.NoError(t, err)
		require.Len(t, bundle.Watts, 1)
		assert.Equal(t, 100, bundle.Watts[0].Watts)
	})
}

func TestEstimateHorizonShading(t *testing.T) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, cet)
	shadedSample := func(at time.Time) RawSample {
		s := plainSample(at, 1000, 20, 0)
		s.DiffuseAvg = f(100)
		s.DiffuseInst = f(100)
		s.DirectAvg = f(100)
		s.DirectInst = f(100)
		return s
	}
	series := &ArraySeries{
		Location:         cet,
		UTCOffsetSeconds: 3600,
		Samples:          []RawSample{shadedSample(base), shadedSample(base.Add(SampleInterval))},
	}
	horizon := flatHorizon(t, 10)
	ross, err := NewRossModel("well-cooled")
	require.NoError(t, err)

	run := func(t *testing.T, sun SunPositionProvider, partial bool) int {
		est := newTestEstimator(t, PlantConfig{
			Arrays: []ArrayConfig{{
				DcKwp: 1.0, Efficiency: 1.0,
				UseHorizon: true, PartialShading: partial, Horizon: horizon,
			}},
			TempModel: ross,
		}, sun)
		bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
		require.NoError(t, err)
		require.Len(t, bundle.Watts, 1)
		return bundle.Watts[0].Watts
	}

	lowSun := stubSun{pos: SunPosition{Azimuth: 180, Altitude: 5}}
	highSun := stubSun{pos: SunPosition{Azimuth: 180, Altitude: 15}}

	// Shaded with partial shading: G = diffuse * f = 100 * 0.5 = 50,
	// Tc = 20 + 0.02*50 = 21, P = 1000*0.05*(1+0.02) = 51
	assert.Equal(t, 51, run(t, lowSun, true))

	// Shaded without partial shading: pure diffuse, G = 100,
	// Tc = 22, P = 100 * 1.015 = 101.5 -> 102
	assert.Equal(t, 102, run(t, lowSun, false))

	// Unshaded: full tilted irradiance regardless of the diffuse split,
	// Tc = 40, P = 1000 * 0.925 = 925
	assert.Equal(t, 925, run(t, highSun, true))
}

func TestEstimateHorizonRequiresDiffuseSplit(t *testing.T) {
	// With shading enabled a sample lacking the diffuse/direct components is
	// dropped instead of partially substituted.
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, cet)
	series := &ArraySeries{
		Location:         cet,
		UTCOffsetSeconds: 3600,
		Samples: []RawSample{
			plainSample(base, 1000, 20, 0),
			plainSample(base.Add(SampleInterval), 1000, 20, 0),
		},
	}
	est := newTestEstimator(t, PlantConfig{
		Arrays: []ArrayConfig{{
			DcKwp: 1.0, Efficiency: 1.0,
			UseHorizon: true, Horizon: flatHorizon(t, 10),
		}},
	}, stubSun{pos: SunPosition{Azimuth: 180, Altitude: 50}})

	bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
	require.NoError(t, err)
	assert.Empty(t, bundle.Watts)
}

func TestEstimateDampingFromSeriesDays(t *testing.T) {
	// Evening damping of 1.0 halves output at the midpoint between midday and
	// sunset: sunrise 06:00, sunset 18:00, point at 15:00.
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, cet)
	cur := day.Add(15*time.Hour + 15*time.Minute)
	series := &ArraySeries{
		Location:         cet,
		UTCOffsetSeconds: 3600,
		Samples: []RawSample{
			plainSample(cur.Add(-SampleInterval), 500, 15, 0),
			plainSample(cur, 500, 15, 0),
		},
		Days: []DaySunTimes{{
			Date:    day,
			Sunrise: day.Add(6 * time.Hour),
			Sunset:  day.Add(18 * time.Hour),
		}},
	}
	ross, err := NewRossModel("well-cooled")
	require.NoError(t, err)

	est := newTestEstimator(t, PlantConfig{
		Arrays:    []ArrayConfig{{DcKwp: 0.2, Efficiency: 1.0, DampingEvening: 1.0}},
		TempModel: ross,
	}, stubSun{})

	bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
	require.NoError(t, err)
	require.Len(t, bundle.Watts, 1)
	assert.Equal(t, 50, bundle.Watts[0].Watts)
}

func TestEstimateDailyTotalsMatchHourlySums(t *testing.T) {
	// Synthetic two-day series with a gap; the daily totals must equal the
	// sum of the hourly means on each date exactly.
	ross, err := NewRossModel("well-cooled")
	require.NoError(t, err)

	var samples []RawSample
	addDay := func(day time.Time, gti float64) {
		for m := 0; m <= 4*60; m += 15 {
			samples = append(samples, plainSample(day.Add(8*time.Hour+time.Duration(m)*time.Minute), gti, 15, 0))
		}
	}
	day1 := time.Date(2025, 5, 1, 0, 0, 0, 0, cet)
	day2 := day1.AddDate(0, 0, 1)
	addDay(day1, 400)
	addDay(day2, 650)
	samples[3].GtiAvg = nil // poke a hole into the feed

	series := &ArraySeries{Location: cet, UTCOffsetSeconds: 3600, Samples: samples}
	est := newTestEstimator(t, PlantConfig{
		Arrays:    []ArrayConfig{{DcKwp: 1.0, Efficiency: 0.9}},
		TempModel: ross,
	}, stubSun{})

	bundle, err := est.Estimate(context.Background(), &stubWeather{series: []*ArraySeries{series}})
	require.NoError(t, err)
	require.Len(t, bundle.WhDays, 2)

	for _, d := range bundle.WhDays {
		sum := 0
		for _, h := range bundle.WhPeriod {
			if floorDay(h.Time).Equal(d.Day) {
				sum += h.Watts
			}
		}
		assert.Equal(t, d.Wh, sum, "daily total for %s", d.Day.Format("2006-01-02"))
	}

	// The feed gap must not produce zero-valued entries anywhere.
	for _, p := range bundle.Watts {
		assert.Greater(t, p.Watts, 0)
	}
}

func TestNewEstimatorValidation(t *testing.T) {
	var cfgErr *ConfigError

	_, err := NewEstimator(PlantConfig{}, stubSun{}, mockLogger{})
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewEstimator(PlantConfig{
		Arrays: []ArrayConfig{{DcKwp: 0, Efficiency: 1}},
	}, stubSun{}, mockLogger{})
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewEstimator(PlantConfig{
		Arrays: []ArrayConfig{{DcKwp: 1, Efficiency: 1, DampingMorning: 1.5}},
	}, stubSun{}, mockLogger{})
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewEstimator(PlantConfig{
		Arrays: []ArrayConfig{{DcKwp: 1, Efficiency: 1, UseHorizon: true}},
	}, stubSun{}, mockLogger{})
	require.ErrorAs(t, err, &cfgErr)
}
