package mensa

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultBaseURL = "https://www.studentenwerk-leipzig.de/mensen-cafeterien/speiseplan"
	userAgent      = "mensabot/1.0"
)

// Client downloads plan pages for one canteen.
type Client struct {
	http     *http.Client
	baseURL  string
	location int
}

func NewClient(baseURL string, location int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		location: location,
	}
}

// URL is the plan page address for date.
func (c *Client) URL(date time.Time) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL
	}
	q := u.Query()
	q.Set("location", strconv.Itoa(c.location))
	q.Set("date", date.Format("2006-01-02"))
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch downloads and parses the page for date without checking which day
// the page actually shows.
func (c *Client) Fetch(ctx context.Context, date time.Time) (*Menu, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(date), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}
	menu, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return menu, nil
}

// FetchMenu returns the plan for date, or ErrNoPlanAvailable when the site
// answers with another day. date is expected to be a weekday already; see
// EffectiveDate.
func (c *Client) FetchMenu(ctx context.Context, date time.Time) (*Menu, error) {
	menu, err := c.Fetch(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := menu.Validate(date); err != nil {
		return nil, err
	}
	return menu, nil
}
