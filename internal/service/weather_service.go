package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/saferoute/backend/internal/domain"
)

// Weather is current-conditions context attached to risk responses
type Weather struct {
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    int       `json:"humidity"`
	Description string    `json:"description"`
	WindSpeed   float64   `json:"wind_speed"`
	Visibility  int       `json:"visibility"`
	Summary     string    `json:"summary"`
	Timestamp   time.Time `json:"timestamp"`
	IsMock      bool      `json:"is_mock"`
}

// WeatherService fetches current conditions for a point
type WeatherService struct {
	apiKey     string
	httpClient *http.Client
}

// NewWeatherService creates a new weather service
func NewWeatherService(apiKey string) *WeatherService {
	return &WeatherService{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// OpenWeatherResponse represents the OpenWeatherMap API response
type OpenWeatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility int `json:"visibility"`
}

// GetCurrentWeather fetches current conditions for the given point.
// Weather is optional context: network trouble falls back to a mock
// reading rather than failing the surrounding risk response.
func (s *WeatherService) GetCurrentWeather(ctx context.Context, p domain.Point) (Weather, error) {
	if !p.Valid() {
		return Weather{}, fmt.Errorf("weather: %w", domain.ErrInvalidLocation)
	}
	if s.apiKey == "" {
		return s.getMockWeather(), nil
	}

	url := fmt.Sprintf(
		"https://api.openweathermap.org/data/2.5/weather?lat=%f&lon=%f&appid=%s&units=metric",
		p.Lat, p.Lon, s.apiKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Weather{}, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return s.getMockWeather(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.getMockWeather(), nil
	}

	var owResp OpenWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return Weather{}, fmt.Errorf("weather: failed to decode response: %w", err)
	}

	weather := Weather{
		Temperature: owResp.Main.Temp,
		FeelsLike:   owResp.Main.FeelsLike,
		Humidity:    owResp.Main.Humidity,
		WindSpeed:   owResp.Wind.Speed,
		Visibility:  owResp.Visibility,
		Timestamp:   time.Now(),
	}
	if len(owResp.Weather) > 0 {
		weather.Description = owResp.Weather[0].Description
	}
	weather.Summary = fmt.Sprintf("%.1f°C, %s, wind %.1f m/s",
		weather.Temperature, weather.Description, weather.WindSpeed)

	return weather, nil
}

// getMockWeather returns seasonally plausible conditions
func (s *WeatherService) getMockWeather() Weather {
	month := time.Now().Month()
	var temp, feelsLike float64
	var description string

	switch {
	case month >= 12 || month <= 2:
		temp = 2.0
		feelsLike = -2.0
		description = "light snow"
	case month >= 6 && month <= 8:
		temp = 29.0
		feelsLike = 32.0
		description = "clear sky"
	default:
		temp = 15.0
		feelsLike = 14.0
		description = "partly cloudy"
	}

	return Weather{
		Temperature: temp,
		FeelsLike:   feelsLike,
		Humidity:    60,
		Description: description,
		WindSpeed:   3.0,
		Visibility:  10000,
		Summary:     fmt.Sprintf("%.1f°C, %s, wind 3.0 m/s", temp, description),
		Timestamp:   time.Now(),
		IsMock:      true,
	}
}
