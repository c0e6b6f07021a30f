package streetview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultBaseURL     = "https://maps.googleapis.com/maps/api"
	DefaultMaxAttempts = 10
	DefaultImageSize   = "640x480"
	searchRadiusMeters = 1000

	minLatitude = -60.0
	maxLatitude = 70.0
)

var ErrNoImagery = errors.New("no street view imagery found")

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type metadataResponse struct {
	Status   string   `json:"status"`
	PanoID   string   `json:"pano_id"`
	Location Location `json:"location"`
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxAttempts int
	imageSize   string
	randFloat   func() float64
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRandSource replaces the coordinate generator. f must return values in [0, 1).
func WithRandSource(f func() float64) Option {
	return func(c *Client) {
		c.randFloat = f
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		httpClient:  http.DefaultClient,
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		maxAttempts: DefaultMaxAttempts,
		imageSize:   DefaultImageSize,
		randFloat:   rand.Float64,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// RandomImage returns a JPEG taken somewhere near a random coordinate. Locations without coverage are skipped,
// up to the configured number of attempts.
func (c *Client) RandomImage(ctx context.Context) ([]byte, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		location := c.randomLocation()
		meta, err := c.metadata(ctx, location)
		if err != nil {
			return nil, err
		}
		switch meta.Status {
		case "OK":
			return c.image(ctx, meta)
		case "ZERO_RESULTS", "NOT_FOUND":
			log.Printf("No imagery at %.5f,%.5f (attempt %d/%d)", location.Lat, location.Lng, attempt, c.maxAttempts)
			continue
		default:
			return nil, fmt.Errorf("street view metadata status %s", meta.Status)
		}
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrNoImagery, c.maxAttempts)
}

func (c *Client) randomLocation() Location {
	return Location{
		Lat: minLatitude + c.randFloat()*(maxLatitude-minLatitude),
		Lng: -180 + c.randFloat()*360,
	}
}

func (c *Client) metadata(ctx context.Context, location Location) (*metadataResponse, error) {
	query := url.Values{}
	query.Set("location", formatLocation(location))
	query.Set("radius", strconv.Itoa(searchRadiusMeters))
	query.Set("key", c.apiKey)

	body, err := c.get(ctx, "/streetview/metadata", query)
	if err != nil {
		return nil, err
	}
	var meta metadataResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse street view metadata: %w", err)
	}
	return &meta, nil
}

func (c *Client) image(ctx context.Context, meta *metadataResponse) ([]byte, error) {
	query := url.Values{}
	query.Set("size", c.imageSize)
	if meta.PanoID != "" {
		query.Set("pano", meta.PanoID)
	} else {
		query.Set("location", formatLocation(meta.Location))
	}
	query.Set("key", c.apiKey)
	return c.get(ctx, "/streetview", query)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error carries the full URL, key included
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("street view request %s failed: %w", path, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("street view request %s returned %s", path, res.Status)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read street view response: %w", err)
	}
	return body, nil
}

func formatLocation(location Location) string {
	return strconv.FormatFloat(location.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(location.Lng, 'f', 6, 64)
}
