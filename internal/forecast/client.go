// Package forecast fetches gridded marine forecast data over HTTP and
// converts it into the sample sets the renderer's grid consumes.
package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/coastflow/coastflow/internal/geo"
	"github.com/coastflow/coastflow/internal/grid"
)

// Layer names the forecast quantity being requested.
type Layer string

const (
	LayerWind       Layer = "wind"
	LayerWaveHeight Layer = "wave_height"
	LayerCurrent    Layer = "current"
)

// Client fetches forecast grids from a coastflow data endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a forecast client for the given endpoint.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "Coastflow/1.0 (github.com/coastflow/coastflow)",
	}
}

// DecodeError reports a payload that arrived but could not be turned
// into a usable grid.
type DecodeError struct {
	Layer Layer
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s payload: %v", e.Layer, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FetchSamples retrieves scattered scalar samples for a layer within the
// given bounds. Wave height payloads carry optional per-sample wave
// direction.
func (c *Client) FetchSamples(ctx context.Context, layer Layer, b geo.Bounds) ([]grid.Sample, error) {
	body, err := c.get(ctx, "samples", layer, b)
	if err != nil {
		return nil, err
	}

	var payload samplesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &DecodeError{Layer: layer, Err: err}
	}
	if len(payload.Samples) == 0 {
		return nil, &DecodeError{Layer: layer, Err: fmt.Errorf("payload contains no samples")}
	}

	out := make([]grid.Sample, 0, len(payload.Samples))
	for _, s := range payload.Samples {
		sample := grid.Sample{Lat: s.Lat, Lng: s.Lng, Value: s.Value}
		if s.Direction != nil {
			sample.Direction = *s.Direction
			sample.HasDirection = true
		}
		out = append(out, sample)
	}
	return out, nil
}

// FetchVectorField retrieves a packed U/V component field for a layer
// and converts it to scattered samples. Used for wind and current
// layers, whose upstream sources publish components rather than
// speed and direction.
func (c *Client) FetchVectorField(ctx context.Context, layer Layer, b geo.Bounds) ([]grid.Sample, error) {
	body, err := c.get(ctx, "field", layer, b)
	if err != nil {
		return nil, err
	}

	var payload fieldPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &DecodeError{Layer: layer, Err: err}
	}

	u, v := payload.componentGrids()
	samples, err := grid.FromComponents(u, v)
	if err != nil {
		return nil, &DecodeError{Layer: layer, Err: err}
	}
	return samples, nil
}

func (c *Client) get(ctx context.Context, resource string, layer Layer, b geo.Bounds) ([]byte, error) {
	q := url.Values{}
	q.Set("layer", string(layer))
	q.Set("bbox", fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", b.MinLng, b.MinLat, b.MaxLng, b.MaxLat))
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, resource, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// Wire types.

type samplesPayload struct {
	Layer   string `json:"layer"`
	Samples []struct {
		Lat       float64  `json:"lat"`
		Lng       float64  `json:"lng"`
		Value     float64  `json:"value"`
		Direction *float64 `json:"direction,omitempty"`
	} `json:"samples"`
}

type fieldPayload struct {
	Layer     string    `json:"layer"`
	OriginLat float64   `json:"originLat"`
	OriginLng float64   `json:"originLng"`
	DeltaLat  float64   `json:"deltaLat"`
	DeltaLng  float64   `json:"deltaLng"`
	Columns   int       `json:"columns"`
	Rows      int       `json:"rows"`
	U         []float64 `json:"u"`
	V         []float64 `json:"v"`
}

func (p fieldPayload) componentGrids() (grid.ComponentGrid, grid.ComponentGrid) {
	shape := grid.ComponentGrid{
		OriginLat: p.OriginLat,
		OriginLng: p.OriginLng,
		DeltaLat:  p.DeltaLat,
		DeltaLng:  p.DeltaLng,
		Columns:   p.Columns,
		Rows:      p.Rows,
	}
	u, v := shape, shape
	u.Values = p.U
	v.Values = p.V
	return u, v
}
