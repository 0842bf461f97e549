package places

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// ErrStatus is wrapped when Open-Meteo answers with a non-200 status.
var ErrStatus = errors.New("unexpected HTTP status")

// OpenMeteo implements Geocoder and WeatherProvider against the keyless
// Open-Meteo APIs.
type OpenMeteo struct {
	HTTP         *http.Client
	GeocodingURL string
	ForecastURL  string
	Language     string
	Timeout      time.Duration
}

// NewOpenMeteo returns a client for the public endpoints.
func NewOpenMeteo(timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{
		GeocodingURL: "https://geocoding-api.open-meteo.com/v1/search",
		ForecastURL:  "https://api.open-meteo.com/v1/forecast",
		Language:     "es",
		Timeout:      timeout,
	}
}

func (o *OpenMeteo) get(ctx context.Context, base string, params url.Values) (gjson.Result, error) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	client := o.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.New("invalid JSON response")
	}
	return gjson.ParseBytes(body), nil
}

// Geocode implements Geocoder using the first search result.
func (o *OpenMeteo) Geocode(ctx context.Context, name string) (*Place, error) {
	lang := o.Language
	if lang == "" {
		lang = "es"
	}
	res, err := o.get(ctx, o.GeocodingURL, url.Values{
		"name":     {name},
		"count":    {"1"},
		"language": {lang},
		"format":   {"json"},
	})
	if err != nil {
		return nil, err
	}

	first := res.Get("results.0")
	if !first.Exists() || !first.Get("latitude").Exists() || !first.Get("longitude").Exists() {
		return nil, nil
	}
	p := &Place{
		Name:        first.Get("name").String(),
		CountryCode: first.Get("country_code").String(),
		Latitude:    first.Get("latitude").Float(),
		Longitude:   first.Get("longitude").Float(),
		Timezone:    first.Get("timezone").String(),
	}
	if p.Name == "" {
		p.Name = name
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	return p, nil
}

// CurrentWeather implements WeatherProvider.
func (o *OpenMeteo) CurrentWeather(ctx context.Context, p Place) (*Weather, error) {
	tz := p.Timezone
	if tz == "" {
		tz = "auto"
	}
	res, err := o.get(ctx, o.ForecastURL, url.Values{
		"latitude":      {strconv.FormatFloat(p.Latitude, 'f', -1, 64)},
		"longitude":     {strconv.FormatFloat(p.Longitude, 'f', -1, 64)},
		"current":       {"temperature_2m,apparent_temperature,relative_humidity_2m,weather_code,wind_speed_10m"},
		"forecast_days": {"1"},
		"timezone":      {tz},
	})
	if err != nil {
		return nil, err
	}

	cur := res.Get("current")
	if !cur.Exists() || !cur.Get("temperature_2m").Exists() {
		return nil, errors.New("forecast response has no current block")
	}
	return &Weather{
		Temperature:         cur.Get("temperature_2m").Float(),
		ApparentTemperature: cur.Get("apparent_temperature").Float(),
		Humidity:            cur.Get("relative_humidity_2m").Float(),
		WindSpeed:           cur.Get("wind_speed_10m").Float(),
		Code:                int(cur.Get("weather_code").Int()),
	}, nil
}
