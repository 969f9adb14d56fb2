package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
	"github.com/couchcryptid/storm-hazard-impact/internal/observability"
)

// driveableHighways limits fetched ways to roads a vehicle can use.
const driveableHighways = "motorway|trunk|primary|secondary|tertiary|unclassified|residential|living_street|service|motorway_link|trunk_link|primary_link|secondary_link|tertiary_link"

// Client implements domain.RoadSource using the Overpass API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Overpass road client for the interpreter endpoint at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchRoads returns the driveable ways intersecting bound.
func (c *Client) FetchRoads(ctx context.Context, bound orb.Bound) ([]domain.RoadFeature, error) {
	start := time.Now()
	roads, err := c.doRequest(ctx, buildQuery(bound))
	c.metrics.RoadFetchDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.RoadFetchRequests.WithLabelValues("error").Inc()
		return nil, err
	case len(roads) == 0:
		c.metrics.RoadFetchRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.RoadFetchRequests.WithLabelValues("success").Inc()
	}

	c.logger.Debug("roads fetched", "count", len(roads), "duration", time.Since(start))
	return roads, nil
}

// buildQuery renders an Overpass QL query. Overpass bboxes are south,west,north,east.
func buildQuery(b orb.Bound) string {
	return fmt.Sprintf(`[out:json];way["highway"~"^(%s)$"](%s,%s,%s,%s);out geom;`,
		driveableHighways,
		formatCoord(b.Min.Lat()), formatCoord(b.Min.Lon()),
		formatCoord(b.Max.Lat()), formatCoord(b.Max.Lon()),
	)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 7, 64)
}

func (c *Client) doRequest(ctx context.Context, query string) ([]domain.RoadFeature, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("overpass API error: status %d: %s", resp.StatusCode, body)
	}

	var overpassResp response
	if err := json.NewDecoder(resp.Body).Decode(&overpassResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	roads := make([]domain.RoadFeature, 0, len(overpassResp.Elements))
	for _, el := range overpassResp.Elements {
		if el.Type != "way" || len(el.Geometry) == 0 {
			continue
		}
		roads = append(roads, toRoadFeature(el))
	}
	return roads, nil
}

func toRoadFeature(el element) domain.RoadFeature {
	id := strconv.FormatInt(el.ID, 10)
	line := make(orb.LineString, len(el.Geometry))
	for i, n := range el.Geometry {
		line[i] = orb.Point{n.Lon, n.Lat}
	}

	name := el.Tags["name"]
	if name == "" {
		name = "Road " + id
	}

	var tags map[string]string
	for k, v := range el.Tags {
		if k == "name" {
			continue
		}
		if tags == nil {
			tags = make(map[string]string, len(el.Tags))
		}
		tags[k] = v
	}

	return domain.RoadFeature{ID: id, Name: name, Tags: tags, Geometry: line}
}

// Overpass API response types.

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags,omitempty"`
	Geometry []node            `json:"geometry,omitempty"` // present with "out geom"
}

type node struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
