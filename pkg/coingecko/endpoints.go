package coingecko

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// BaseURL is the public CoinGecko API root
	BaseURL = "https://api.coingecko.com/api/v3"

	// MarketsEndpoint lists coins with market data, paginated
	MarketsEndpoint = "/coins/markets"

	// DefaultCurrency is the vs_currency every price is quoted in
	DefaultCurrency = "usd"

	// DefaultOrder sorts by market capitalisation, largest first
	DefaultOrder = "market_cap_desc"
)

// MarketsQuery holds the query parameters of one markets page request
type MarketsQuery struct {
	Currency  string
	Order     string
	PerPage   int
	Page      int
	Sparkline bool
	// Periods is the comma-separated price_change_percentage value
	Periods string
}

// Values encodes the query in the parameter names the endpoint expects
func (q MarketsQuery) Values() url.Values {
	params := url.Values{}
	params.Set("vs_currency", q.Currency)
	params.Set("order", q.Order)
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("sparkline", strconv.FormatBool(q.Sparkline))
	params.Set("price_change_percentage", q.Periods)
	return params
}

// MarketsURL builds the request URL for one page. Empty baseURL or endpoint
// fall back to BaseURL and MarketsEndpoint.
func MarketsURL(baseURL, endpoint string, q MarketsQuery) string {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if endpoint == "" {
		endpoint = MarketsEndpoint
	}
	return fmt.Sprintf("%s%s?%s", baseURL, endpoint, q.Values().Encode())
}
