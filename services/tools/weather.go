package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

func (d *Dispatcher) openWeather(ctx context.Context, location string) (string, error) {
	endpoint := fmt.Sprintf("%s/weather?q=%s&units=metric&appid=%s",
		d.cfg.WeatherBase, url.QueryEscape(location), d.cfg.WeatherAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather API returned %s", resp.Status)
	}

	var payload struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
		} `json:"main"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	description := "unknown conditions"
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}
	name := payload.Name
	if name == "" {
		name = location
	}
	return fmt.Sprintf("%.0f°C, %s in %s (feels like %.0f°C)",
		payload.Main.Temp, description, name, payload.Main.FeelsLike), nil
}
