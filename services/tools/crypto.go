package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/maarifa-ai/maarifa/pkg/xlog"
)

// coin id lookup for the public price index; anything unrecognized
// defaults to bitcoin.
var coinIDs = map[string]string{
	"bitcoin":  "bitcoin",
	"btc":      "bitcoin",
	"ethereum": "ethereum",
	"eth":      "ethereum",
	"solana":   "solana",
	"sol":      "solana",
	"dogecoin": "dogecoin",
	"doge":     "dogecoin",
}

var coinWordPattern = regexp.MustCompile(`(?i)\b(bitcoin|btc|ethereum|eth|solana|sol|dogecoin|doge)\b`)

func extractCoinID(message string) string {
	if m := coinWordPattern.FindString(message); m != "" {
		if id, ok := coinIDs[strings.ToLower(m)]; ok {
			return id
		}
	}
	return defaultCoinID
}

func (d *Dispatcher) cryptoSnippet(ctx context.Context, message string) string {
	coin := extractCoinID(message)
	price, change, err := d.coinPrice(ctx, coin)
	if err != nil {
		xlog.Warn("Crypto price lookup failed", "coin", coin, "error", err)
		return "sorry, I couldn't fetch market prices right now."
	}
	return fmt.Sprintf("%s is priced at $%.2f (%+.2f%%)", title(coin), price, change)
}

func (d *Dispatcher) coinPrice(ctx context.Context, coin string) (price, change float64, err error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		d.cfg.CoinGeckoBase, url.QueryEscape(coin))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("price index returned %s", resp.Status)
	}

	var payload map[string]struct {
		USD       float64 `json:"usd"`
		USDChange float64 `json:"usd_24h_change"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, err
	}
	entry, ok := payload[coin]
	if !ok {
		return 0, 0, fmt.Errorf("no price entry for %q", coin)
	}
	return entry.USD, entry.USDChange, nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
