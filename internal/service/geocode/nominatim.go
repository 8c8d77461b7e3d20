package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultEndpoint Nominatim 搜索接口
const DefaultEndpoint = "https://nominatim.openstreetmap.org/search"

// DefaultUserAgent is sent with every request, as Nominatim's usage policy requires.
const DefaultUserAgent = "vendorlens/1.0"

// NominatimProvider 基于 Nominatim 的地理编码
type NominatimProvider struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

// NewNominatimProvider creates a provider with defaults for empty fields.
func NewNominatimProvider(endpoint, userAgent string, client *http.Client) *NominatimProvider {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &NominatimProvider{Endpoint: endpoint, UserAgent: userAgent, Client: client}
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup 查询第一个匹配的地点
func (p *NominatimProvider) Lookup(ctx context.Context, address string) (float64, float64, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("nominatim: unexpected status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return 0, 0, fmt.Errorf("nominatim: decode response: %w", err)
	}
	if len(places) == 0 {
		return 0, 0, ErrNoResult
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("nominatim: lat %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("nominatim: lon %q: %w", places[0].Lon, err)
	}
	return lat, lon, nil
}
