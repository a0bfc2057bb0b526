package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var cryptoNewsPattern = regexp.MustCompile(`(?i)\b(crypto|cryptocurrency|bitcoin|btc)\b`)

// newsHeadlines queries the keyed news API. A crypto-flavored message
// switches from top headlines to a topic query.
func (d *Dispatcher) newsHeadlines(ctx context.Context, message string) (string, error) {
	var endpoint string
	if cryptoNewsPattern.MatchString(message) {
		endpoint = fmt.Sprintf("%s/everything?q=%s&sortBy=publishedAt&pageSize=%d&apiKey=%s",
			d.cfg.NewsBase, url.QueryEscape("cryptocurrency"), maxNewsHeadline, d.cfg.NewsAPIKey)
	} else {
		endpoint = fmt.Sprintf("%s/top-headlines?language=en&pageSize=%d&apiKey=%s",
			d.cfg.NewsBase, maxNewsHeadline, d.cfg.NewsAPIKey)
	}

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
		return "", fmt.Errorf("news API returned %s", resp.Status)
	}

	var payload struct {
		Articles []struct {
			Title string `json:"title"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Articles) == 0 {
		return "", fmt.Errorf("news API returned no articles")
	}

	var titles []string
	for _, a := range payload.Articles {
		if a.Title != "" {
			titles = append(titles, a.Title)
		}
	}
	return strings.Join(titles, "; "), nil
}
