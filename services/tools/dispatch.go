// Package tools enriches a chat message with live lookups: crypto
// prices, news, weather, and generic web search. Intent detection is
// keyword matching, not classification. Tool failures degrade to short
// apology snippets; they never abort the chat flow.
package tools

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

const (
	requestTimeout  = 10 * time.Second
	defaultCity     = "Beirut"
	defaultCoinID   = "bitcoin"
	coinGeckoAPI    = "https://api.coingecko.com/api/v3"
	newsAPI         = "https://newsapi.org/v2"
	openWeatherAPI  = "https://api.openweathermap.org/data/2.5"
	duckDuckGoAPI   = "https://api.duckduckgo.com"
	maxNewsHeadline = 3
)

var (
	cryptoPattern  = regexp.MustCompile(`(?i)\b(bitcoin|btc|ethereum|eth|solana|dogecoin|crypto|cryptocurrency|coin price)\b`)
	newsPattern    = regexp.MustCompile(`(?i)\b(news|headline|headlines|what('| i)s happening)\b`)
	weatherPattern = regexp.MustCompile(`(?i)\b(weather|temperature|forecast|raining|sunny)\b`)
	searchPattern  = regexp.MustCompile(`(?i)\b(search|look up|what is|who is|tell me about|find out)\b`)

	locationPattern = regexp.MustCompile(`(?i)\b(?:in|for|at)\s+([a-zA-Z][a-zA-Z ]{1,40})`)
)

type Config struct {
	NewsAPIKey    string
	WeatherAPIKey string

	// Endpoint overrides, used by tests. Empty means the public API.
	CoinGeckoBase   string
	NewsBase        string
	WeatherBase     string
	DuckDuckGoBase  string
	DisableScrape   bool
	ScrapeUserAgent string
}

type Dispatcher struct {
	cfg  Config
	http *http.Client
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.CoinGeckoBase == "" {
		cfg.CoinGeckoBase = coinGeckoAPI
	}
	if cfg.NewsBase == "" {
		cfg.NewsBase = newsAPI
	}
	if cfg.WeatherBase == "" {
		cfg.WeatherBase = openWeatherAPI
	}
	if cfg.DuckDuckGoBase == "" {
		cfg.DuckDuckGoBase = duckDuckGoAPI
	}
	if cfg.ScrapeUserAgent == "" {
		cfg.ScrapeUserAgent = "maarifa"
	}
	return &Dispatcher{
		cfg:  cfg,
		http: &http.Client{Timeout: requestTimeout},
	}
}

// Dispatch runs every matching tool and concatenates their labeled
// snippets. Crypto, news, and weather fire independently on intent
// match; generic web search is the lowest-priority catch-all and only
// fires when nothing else produced context.
func (d *Dispatcher) Dispatch(ctx context.Context, message string) string {
	var parts []string

	if cryptoPattern.MatchString(message) {
		parts = append(parts, "Market info: "+d.cryptoSnippet(ctx, message))
	}
	if newsPattern.MatchString(message) {
		parts = append(parts, "News: "+d.newsSnippet(ctx, message))
	}
	if weatherPattern.MatchString(message) {
		parts = append(parts, "Weather: "+d.weatherSnippet(ctx, message))
	}
	if len(parts) == 0 && searchPattern.MatchString(message) {
		parts = append(parts, "Web search: "+d.WebSearch(ctx, message))
	}

	return strings.Join(parts, "\n")
}

func extractLocation(message string) string {
	m := locationPattern.FindStringSubmatch(message)
	if len(m) < 2 {
		return defaultCity
	}
	loc := strings.TrimSpace(m[1])
	// keep at most the first three words, the pattern is greedy
	words := strings.Fields(loc)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

func (d *Dispatcher) weatherSnippet(ctx context.Context, message string) string {
	location := extractLocation(message)
	if d.cfg.WeatherAPIKey == "" {
		xlog.Debug("No weather API key configured, falling back to web search", "location", location)
		return d.WebSearch(ctx, "weather in "+location+" today")
	}
	snippet, err := d.openWeather(ctx, location)
	if err != nil {
		xlog.Warn("Weather lookup failed, falling back to web search", "location", location, "error", err)
		return d.WebSearch(ctx, "weather in "+location+" today")
	}
	return snippet
}

func (d *Dispatcher) newsSnippet(ctx context.Context, message string) string {
	if d.cfg.NewsAPIKey == "" {
		return d.WebSearch(ctx, "latest news "+strings.TrimSpace(message))
	}
	snippet, err := d.newsHeadlines(ctx, message)
	if err != nil {
		xlog.Warn("News lookup failed, falling back to web search", "error", err)
		return d.WebSearch(ctx, "latest news "+strings.TrimSpace(message))
	}
	return snippet
}
