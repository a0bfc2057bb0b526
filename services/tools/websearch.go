package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tmc/langchaingo/tools/duckduckgo"
	"mvdan.cc/xurls/v2"

	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

// WebSearch queries the instant-answer endpoint, preferring in order
// the abstract summary, a direct answer, a definition, then the first
// related-topic text. When the endpoint has nothing, one HTML search
// is attempted as a last resort before giving up.
func (d *Dispatcher) WebSearch(ctx context.Context, query string) string {
	if snippet, err := d.instantAnswer(ctx, query); err != nil {
		xlog.Warn("Instant-answer lookup failed", "query", query, "error", err)
	} else if snippet != "" {
		return snippet
	}

	if !d.cfg.DisableScrape {
		if snippet := d.scrapeSearch(ctx, query); snippet != "" {
			return snippet
		}
	}
	return "no specific results found."
}

func (d *Dispatcher) instantAnswer(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		d.cfg.DuckDuckGoBase, url.QueryEscape(query))

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
		return "", fmt.Errorf("instant-answer endpoint returned %s", resp.Status)
	}

	var payload struct {
		AbstractText  string `json:"AbstractText"`
		Answer        string `json:"Answer"`
		Definition    string `json:"Definition"`
		RelatedTopics []struct {
			Text string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	switch {
	case payload.AbstractText != "":
		return payload.AbstractText, nil
	case payload.Answer != "":
		return payload.Answer, nil
	case payload.Definition != "":
		return payload.Definition, nil
	case len(payload.RelatedTopics) > 0 && payload.RelatedTopics[0].Text != "":
		return payload.RelatedTopics[0].Text, nil
	}
	return "", nil
}

func (d *Dispatcher) scrapeSearch(ctx context.Context, query string) string {
	ddg, err := duckduckgo.New(1, d.cfg.ScrapeUserAgent)
	if err != nil {
		xlog.Warn("Could not build search client", "error", err)
		return ""
	}
	res, err := ddg.Call(ctx, query)
	if err != nil {
		xlog.Warn("Search scrape failed", "query", query, "error", err)
		return ""
	}

	// strip redirect wrapping from any embedded result links
	rxStrict := xurls.Strict()
	for _, u := range rxStrict.FindAllString(res, -1) {
		clean := strings.ReplaceAll(u, "//duckduckgo.com/l/?uddg=", "")
		clean = strings.Split(clean, "&rut=")[0]
		res = strings.ReplaceAll(res, u, clean)
	}
	return strings.TrimSpace(res)
}
