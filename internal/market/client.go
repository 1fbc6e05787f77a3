package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Client talks to the external market data source. The source is a fixed,
// semi-stable contract: three read-only commands on one endpoint.
type Client struct {
	baseURL string
	client  *resty.Client
}

// PricePoint is one entry of an item's historical price series. The source
// reports purchase_price as a string and sometimes uses a comma decimal
// separator depending on locale.
type PricePoint struct {
	Date          string `json:"date"` // "2025-02-04 12:00:00"
	PurchasePrice string `json:"purchase_price"`
}

// ModelInfo is one row of the model-info listing.
type ModelInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Rarity     string `json:"rarity"`
	Collection string `json:"collection"`
	ImageURL   string `json:"image"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")

	return &Client{
		baseURL: baseURL,
		client:  client,
	}
}

// FetchNames returns the raw item name listing. The source wraps every name
// in a single-element array.
func (c *Client) FetchNames(ctx context.Context) ([]string, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.baseURL + "?command=getItemsNames")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("names listing returned status %d", resp.StatusCode())
	}

	var rows [][]string
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("failed to decode names listing: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		names = append(names, row[0])
	}
	return names, nil
}

// FetchModelInfos returns the model-info listing: full name, type, rarity,
// collection and image URL per item.
func (c *Client) FetchModelInfos(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.baseURL + "?command=getModelInfo")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("model info listing returned status %d", resp.StatusCode())
	}

	var infos []ModelInfo
	if err := json.Unmarshal(resp.Body(), &infos); err != nil {
		return nil, fmt.Errorf("failed to decode model info listing: %w", err)
	}
	return infos, nil
}

// FetchPriceHistory returns the ordered historical price points for one item,
// queried by its full market name.
func (c *Client) FetchPriceHistory(ctx context.Context, name string) ([]PricePoint, error) {
	encodedName := url.QueryEscape(name)
	resp, err := c.client.R().SetContext(ctx).Get(fmt.Sprintf("%s?command=getStat&name=%s", c.baseURL, encodedName))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("price history for %q returned status %d", name, resp.StatusCode())
	}

	var points []PricePoint
	if err := json.Unmarshal(resp.Body(), &points); err != nil {
		return nil, fmt.Errorf("failed to decode price history for %q: %w", name, err)
	}
	return points, nil
}

// ParsePrice normalizes a source price string into a decimal. The source
// emits either "1234.56" or "1234,56" depending on locale.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty price string")
	}
	s = strings.ReplaceAll(s, ",", ".")
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable price %q: %w", s, err)
	}
	return price, nil
}
