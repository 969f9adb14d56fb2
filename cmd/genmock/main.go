// Command genmock generates synthetic flood scenarios as analysis request
// fixtures, together with the reports the service produces for them. Reports
// are computed with the real domain package under a fixed clock, so the
// fixture pair doubles as a regression baseline for cmd/validate.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -requests-out data/mock/analysis_requests.json \
//	  -reports-out data/mock/impact_reports.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
)

// fixtureTime stamps every generated report.
var fixtureTime = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

// scenario describes one synthetic flood footprint.
type scenario struct {
	id      string
	crs     string
	center  orb.Point // geographic or projected, matching crs
	span    float64   // bbox width and height in CRS units
	size    int       // raster width and height in pixels
	blobs   int       // number of elliptical flood patches
	roadsNS int       // north-south roads
	roadsEW int       // east-west roads
	derive  bool      // omit resolution so it is derived from the bbox
	nodata  bool      // sprinkle nodata (NaN) cells into the band
}

var scenarios = []scenario{
	{id: "houston-bayou", crs: "EPSG:4326", center: orb.Point{-95.37, 29.76}, span: 0.05, size: 120, blobs: 3, roadsNS: 6, roadsEW: 6},
	{id: "cedar-rapids", crs: "WGS 84", center: orb.Point{-91.67, 41.98}, span: 0.02, size: 80, blobs: 1, roadsNS: 4, roadsEW: 3, derive: true},
	{id: "utm-floodplain", crs: "WGS 84 / UTM zone 15N", center: orb.Point{500000, 3300000}, span: 6000, size: 60, blobs: 2, roadsNS: 3, roadsEW: 5, nodata: true},
	{id: "dry-run", crs: "", center: orb.Point{0, 0}, span: 1000, size: 20, blobs: 0, roadsNS: 2, roadsEW: 2},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	requestsOut := flag.String("requests-out", "", "output path for the analysis request fixture")
	reportsOut := flag.String("reports-out", "", "output path for the expected impact report fixture")
	seed := flag.Uint64("seed", 20240426, "random seed for flood footprints")
	flag.Parse()

	if *requestsOut == "" || *reportsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -requests-out, -reports-out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewPCG(*seed, *seed>>1))
	params := domain.DefaultParams()

	requests := make([]json.RawMessage, 0, len(scenarios))
	reports := make([]domain.ImpactReport, 0, len(scenarios))

	for _, sc := range scenarios {
		req := buildRequest(sc, rng)

		data, err := domain.EncodeAnalysisRequest(req)
		if err != nil {
			return fmt.Errorf("encode %s: %w", sc.id, err)
		}
		requests = append(requests, data)

		mask, err := domain.DecodeMask(req.Raster, params.HazardValue)
		if err != nil {
			return fmt.Errorf("decode %s: %w", sc.id, err)
		}
		report := domain.NewImpactReport(req.ID, mask, req.Roads, domain.RoadSourceRequest, params)
		reports = append(reports, report)

		log.Printf("%s: %dx%d, %d hazard px, in=%d near=%d unaffected=%d",
			sc.id, sc.size, sc.size, mask.HazardCount(),
			report.Summary.InHazard, report.Summary.NearHazard, report.Summary.Unaffected)
	}

	if err := writeJSON(*requestsOut, requests); err != nil {
		return fmt.Errorf("writing request fixture: %w", err)
	}
	log.Printf("wrote request fixture: %s", *requestsOut)

	if err := writeJSON(*reportsOut, reports); err != nil {
		return fmt.Errorf("writing report fixture: %w", err)
	}
	log.Printf("wrote report fixture: %s", *reportsOut)
	return nil
}

func buildRequest(sc scenario, rng *rand.Rand) domain.AnalysisRequest {
	half := sc.span / 2
	bound := orb.Bound{
		Min: orb.Point{sc.center[0] - half, sc.center[1] - half},
		Max: orb.Point{sc.center[0] + half, sc.center[1] + half},
	}
	pixel := sc.span / float64(sc.size)

	values := make([]float64, sc.size*sc.size)
	for range sc.blobs {
		paintBlob(values, sc.size, rng)
	}
	if sc.nodata {
		for i := range values {
			if rng.IntN(50) == 0 {
				values[i] = math.NaN()
			}
		}
	}

	raster := domain.RasterInput{
		Width:  sc.size,
		Height: sc.size,
		Bands:  []domain.Band{domain.ArrayBand(values)},
		BBox:   []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
		CRS:    sc.crs,
	}
	if !sc.derive {
		raster.Resolution = []float64{pixel, -pixel}
	}

	return domain.AnalysisRequest{
		ID:     sc.id,
		Raster: raster,
		Roads:  gridRoads(bound, sc.roadsNS, sc.roadsEW, pixel),
	}
}

// paintBlob marks an axis-aligned ellipse of hazard cells.
func paintBlob(values []float64, size int, rng *rand.Rand) {
	cx := rng.Float64() * float64(size)
	cy := rng.Float64() * float64(size)
	rx := 2 + rng.Float64()*float64(size)/6
	ry := 2 + rng.Float64()*float64(size)/6
	for y := range size {
		for x := range size {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy <= 1 {
				values[y*size+x] = 1
			}
		}
	}
}

// gridRoads lays evenly spaced straight roads across the bounds, with a vertex
// every pixel so classification sees the whole length.
func gridRoads(b orb.Bound, ns, ew int, step float64) []domain.RoadFeature {
	roads := make([]domain.RoadFeature, 0, ns+ew)
	for i := range ns {
		x := b.Min[0] + (float64(i)+0.5)*(b.Max[0]-b.Min[0])/float64(ns)
		roads = append(roads, domain.RoadFeature{
			ID:       fmt.Sprintf("ns-%d", i+1),
			Name:     fmt.Sprintf("North Street %d", i+1),
			Tags:     map[string]string{"highway": "residential"},
			Geometry: sampleLine(orb.Point{x, b.Min[1]}, orb.Point{x, b.Max[1]}, step),
		})
	}
	for i := range ew {
		y := b.Min[1] + (float64(i)+0.5)*(b.Max[1]-b.Min[1])/float64(ew)
		roads = append(roads, domain.RoadFeature{
			ID:       fmt.Sprintf("ew-%d", i+1),
			Name:     fmt.Sprintf("East Avenue %d", i+1),
			Tags:     map[string]string{"highway": "secondary"},
			Geometry: sampleLine(orb.Point{b.Min[0], y}, orb.Point{b.Max[0], y}, step),
		})
	}
	return roads
}

func sampleLine(from, to orb.Point, step float64) orb.LineString {
	length := math.Hypot(to[0]-from[0], to[1]-from[1])
	n := max(1, int(math.Ceil(length/step)))
	line := make(orb.LineString, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		line = append(line, orb.Point{from[0] + t*(to[0]-from[0]), from[1] + t*(to[1]-from[1])})
	}
	return line
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
