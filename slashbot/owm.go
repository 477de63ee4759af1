package slashbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const (
	owmDefaultBaseURL = "https://api.openweathermap.org"

	// WeatherUnitsMetric reports celsius and km/h
	WeatherUnitsMetric = "metric"

	// WeatherUnitsImperial reports fahrenheit and mph
	WeatherUnitsImperial = "imperial"
)

// ErrLocationNotFound indicates the geocoder returned no match for the
// requested location.
var ErrLocationNotFound = errors.New("location not found")

// OWMClient is a minimal OpenWeatherMap API client covering geocoding,
// current weather, and the 5-day forecast.
type OWMClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOWMClient(cfg *WeatherConfig, httpClient *http.Client) *OWMClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = owmDefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OWMClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Enabled reports whether an API key is configured.
func (c *OWMClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// GeocodeResult is one match from the OWM direct geocoding API.
type GeocodeResult struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// WeatherConditions is the subset of the current-weather response the
// bot reports.
type WeatherConditions struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
		Gust  float64 `json:"gust"`
	} `json:"wind"`
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// ForecastEntry is one 3-hour slot from the 5-day forecast response.
type ForecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp    float64 `json:"temp"`
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Rain struct {
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	DtTxt string `json:"dt_txt"`
}

// Forecast is the 5-day/3-hour forecast response.
type Forecast struct {
	List []ForecastEntry `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

// Geocode resolves a free-form location query ("city[,country]") to
// coordinates. Returns ErrLocationNotFound on an empty result.
func (c *OWMClient) Geocode(ctx context.Context, query string) (*GeocodeResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")

	var results []GeocodeResult
	if err := c.get(ctx, "/geo/1.0/direct", params, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrLocationNotFound, query)
	}
	return &results[0], nil
}

// CurrentWeather returns current conditions at the given coordinates.
func (c *OWMClient) CurrentWeather(
	ctx context.Context,
	lat float64,
	lon float64,
	units string,
) (*WeatherConditions, error) {
	params := coordParams(lat, lon, units)
	var conditions WeatherConditions
	if err := c.get(ctx, "/data/2.5/weather", params, &conditions); err != nil {
		return nil, err
	}
	return &conditions, nil
}

// DailyForecast returns the 5-day/3-hour forecast at the given
// coordinates.
func (c *OWMClient) DailyForecast(
	ctx context.Context,
	lat float64,
	lon float64,
	units string,
) (*Forecast, error) {
	params := coordParams(lat, lon, units)
	var forecast Forecast
	if err := c.get(ctx, "/data/2.5/forecast", params, &forecast); err != nil {
		return nil, err
	}
	return &forecast, nil
}

func coordParams(lat float64, lon float64, units string) url.Values {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	if units != "" {
		params.Set("units", units)
	}
	return params
}

func (c *OWMClient) get(
	ctx context.Context,
	path string,
	params url.Values,
	out any,
) error {
	params.Set("appid", c.apiKey)
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openweathermap request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf(
			"openweathermap returned %d: %s",
			resp.StatusCode,
			string(body),
		)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding openweathermap response: %w", err)
	}
	return nil
}

// TemperatureUnit returns the display unit for the given units mode.
func TemperatureUnit(units string) string {
	if units == WeatherUnitsImperial {
		return "°F"
	}
	return "°C"
}

// SpeedUnit returns the wind speed display unit for the given units
// mode. OWM reports metric wind in m/s.
func SpeedUnit(units string) string {
	if units == WeatherUnitsImperial {
		return "mph"
	}
	return "m/s"
}

// degreesToCardinal converts a wind bearing to a compass direction.
func degreesToCardinal(deg float64) string {
	directions := []string{
		"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
	}
	idx := int((deg+11.25)/22.5) % len(directions)
	return directions[idx]
}
