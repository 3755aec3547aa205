package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/b0d/solar-estimate/internal/domain"
)

// Typed API failures so callers can tell a bad key from a flaky upstream.
var (
	ErrAPIUnreachable = errors.New("weather API unreachable")
	ErrAPIBadRequest  = errors.New("weather API rejected the request")
	ErrAPIAuth        = errors.New("weather API authentication failed")
	ErrAPIConfig      = errors.New("weather API rejected the site configuration")
	ErrAPIRateLimit   = errors.New("weather API rate limit exceeded")
)

// OpenMeteoAdapter implements domain.WeatherSeriesProvider against the
// Open-Meteo forecast API, fetching the 15-minutely tilted-irradiance series
// for one array per call.
type OpenMeteoAdapter struct {
	baseURL       string
	apiKey        string
	pastDays      int
	forecastDays  int
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration
	logger        domain.Logger
}

// OpenMeteoOptions configures the adapter. Zero values fall back to the
// public API endpoint with three days of history and forecast.
type OpenMeteoOptions struct {
	BaseURL        string
	APIKey         string
	PastDays       int
	ForecastDays   int
	TimeoutSeconds int
	RetryAttempts  int
	RetryDelay     time.Duration
}

// openMeteoResponse mirrors the JSON shape of the forecast endpoint. The
// 15-minutely arrays use pointers because the API reports gaps as null.
type openMeteoResponse struct {
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
	Timezone         string `json:"timezone"`
	Minutely15       struct {
		Time          []string   `json:"time"`
		Temperature2m []*float64 `json:"temperature_2m"`
		WindSpeed10m  []*float64 `json:"wind_speed_10m"`
		GtiAvg        []*float64 `json:"global_tilted_irradiance"`
		GtiInst       []*float64 `json:"global_tilted_irradiance_instant"`
		DiffuseAvg    []*float64 `json:"diffuse_radiation"`
		DiffuseInst   []*float64 `json:"diffuse_radiation_instant"`
		DirectAvg     []*float64 `json:"direct_radiation"`
		DirectInst    []*float64 `json:"direct_radiation_instant"`
	} `json:"minutely_15"`
	Daily struct {
		Time    []string `json:"time"`
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

// NewOpenMeteoAdapter creates a new Open-Meteo adapter
func NewOpenMeteoAdapter(opts OpenMeteoOptions, logger domain.Logger) *OpenMeteoAdapter {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.open-meteo.com/v1/forecast"
	}
	if opts.PastDays <= 0 {
		opts.PastDays = 3
	}
	if opts.ForecastDays <= 0 {
		opts.ForecastDays = 3
	}
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 10
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	return &OpenMeteoAdapter{
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		pastDays:     opts.PastDays,
		forecastDays: opts.ForecastDays,
		httpClient: &http.Client{
			Timeout: time.Duration(opts.TimeoutSeconds) * time.Second,
		},
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		logger:        logger,
	}
}

// ArraySeries fetches the 15-minutely weather series for one array with
// retries. Client-side rejections (auth, bad request, site configuration) are
// not retried.
func (a *OpenMeteoAdapter) ArraySeries(ctx context.Context, array domain.ArrayConfig) (*domain.ArraySeries, error) {
	reqURL := a.buildURL(array)

	var lastErr error
	for attempt := 0; attempt < a.retryAttempts; attempt++ {
		if attempt > 0 {
			a.logger.Info("Retrying Open-Meteo API", "attempt", attempt, "delay_seconds", a.retryDelay.Seconds())
			select {
			case <-time.After(a.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := a.httpClient.Do(a.createRequest(ctx, reqURL))
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrAPIUnreachable, err)
			a.logger.Error("Failed to fetch from Open-Meteo", "error", err.Error(), "attempt", attempt+1)
			continue
		}

		series, err := a.parseResponse(resp)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			if !retryable(err) {
				return nil, err
			}
			a.logger.Error("Failed to read Open-Meteo response", "error", err.Error(), "attempt", attempt+1)
			continue
		}

		a.logger.Info("Successfully fetched weather series from Open-Meteo",
			"samples", len(series.Samples), "days", len(series.Days))
		return series, nil
	}

	return nil, fmt.Errorf("failed to fetch weather series after %d attempts: %w", a.retryAttempts, lastErr)
}

// buildURL assembles the forecast query for one array's site and panel
// orientation. Open-Meteo counts panel azimuth from south, so the compass
// azimuth is shifted by 180 degrees.
func (a *OpenMeteoAdapter) buildURL(array domain.ArrayConfig) string {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(array.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(array.Longitude, 'f', 4, 64))
	q.Set("azimuth", strconv.FormatFloat(array.Azimuth-180, 'f', 1, 64))
	q.Set("tilt", strconv.FormatFloat(array.Declination, 'f', 1, 64))
	q.Set("minutely_15",
		"temperature_2m,wind_speed_10m,"+
			"global_tilted_irradiance,global_tilted_irradiance_instant,"+
			"diffuse_radiation,diffuse_radiation_instant,"+
			"direct_radiation,direct_radiation_instant")
	q.Set("daily", "sunrise,sunset")
	q.Set("past_days", strconv.Itoa(a.pastDays))
	q.Set("forecast_days", strconv.Itoa(a.forecastDays))
	q.Set("timezone", "auto")
	if a.apiKey != "" {
		q.Set("apikey", a.apiKey)
	}
	return a.baseURL + "?" + q.Encode()
}

// createRequest creates an HTTP request with context
func (a *OpenMeteoAdapter) createRequest(ctx context.Context, url string) *http.Request {
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	req.Header.Set("User-Agent", "SolarEstimate/1.0")
	return req
}

// parseResponse maps HTTP failures onto the typed API errors and decodes a
// successful body into the domain series.
func (a *OpenMeteoAdapter) parseResponse(resp *http.Response) (*domain.ArraySeries, error) {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		base := ErrAPIUnreachable
		switch resp.StatusCode {
		case http.StatusBadRequest:
			base = ErrAPIBadRequest
		case http.StatusUnauthorized, http.StatusForbidden:
			base = ErrAPIAuth
		case http.StatusUnprocessableEntity:
			base = ErrAPIConfig
		case http.StatusTooManyRequests:
			base = ErrAPIRateLimit
		}
		return nil, fmt.Errorf("%w: status %d: %s", base, resp.StatusCode, string(body))
	}

	var apiResp openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode JSON response: %w", err)
	}

	return a.buildSeries(apiResp)
}

// buildSeries converts the API response to the domain series. Timestamps are
// local to the site and carry the fixed UTC offset the API resolved.
func (a *OpenMeteoAdapter) buildSeries(apiResp openMeteoResponse) (*domain.ArraySeries, error) {
	loc := time.FixedZone(apiResp.Timezone, apiResp.UTCOffsetSeconds)
	m := apiResp.Minutely15

	series := &domain.ArraySeries{
		Location:         loc,
		UTCOffsetSeconds: apiResp.UTCOffsetSeconds,
		Samples:          make([]domain.RawSample, 0, len(m.Time)),
	}

	for i, ts := range m.Time {
		at, err := time.ParseInLocation("2006-01-02T15:04", ts, loc)
		if err != nil {
			a.logger.Error("Failed to parse time", "time_string", ts, "error", err.Error())
			continue
		}
		series.Samples = append(series.Samples, domain.RawSample{
			Time:        at,
			GtiAvg:      at15(m.GtiAvg, i),
			GtiInst:     at15(m.GtiInst, i),
			DiffuseAvg:  at15(m.DiffuseAvg, i),
			DiffuseInst: at15(m.DiffuseInst, i),
			DirectAvg:   at15(m.DirectAvg, i),
			DirectInst:  at15(m.DirectInst, i),
			Temperature: at15(m.Temperature2m, i),
			WindSpeed:   kmhToMs(at15(m.WindSpeed10m, i)),
		})
	}

	for i, day := range apiResp.Daily.Time {
		if i >= len(apiResp.Daily.Sunrise) || i >= len(apiResp.Daily.Sunset) {
			break
		}
		date, err := time.ParseInLocation("2006-01-02", day, loc)
		if err != nil {
			continue
		}
		sunrise, err1 := time.ParseInLocation("2006-01-02T15:04", apiResp.Daily.Sunrise[i], loc)
		sunset, err2 := time.ParseInLocation("2006-01-02T15:04", apiResp.Daily.Sunset[i], loc)
		if err1 != nil || err2 != nil {
			continue
		}
		series.Days = append(series.Days, domain.DaySunTimes{Date: date, Sunrise: sunrise, Sunset: sunset})
	}

	if len(series.Samples) == 0 {
		return nil, fmt.Errorf("no weather samples in response")
	}
	return series, nil
}

// retryable reports whether a failed fetch is worth another attempt.
func retryable(err error) bool {
	return !errors.Is(err, ErrAPIBadRequest) &&
		!errors.Is(err, ErrAPIAuth) &&
		!errors.Is(err, ErrAPIConfig)
}

// at15 guards against ragged arrays in the response.
func at15(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// kmhToMs converts the API's km/h wind speed to m/s, preserving gaps.
func kmhToMs(v *float64) *float64 {
	if v == nil {
		return nil
	}
	ms := *v / 3.6
	return &ms
}
