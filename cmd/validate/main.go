// Command validate replays analysis request fixtures through the domain
// package and checks the resulting reports: parity with the stored expected
// reports, summary and classification consistency, radius monotonicity, and
// the area arithmetic.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -requests data/mock/analysis_requests.json \
//	  -reports data/mock/impact_reports.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
)

// fixtureTime must match cmd/genmock.
var fixtureTime = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// replayed pairs a decoded request with its mask and freshly computed report.
type replayed struct {
	req    domain.AnalysisRequest
	mask   *domain.RasterMask
	report domain.ImpactReport
}

func main() {
	requestsPath := flag.String("requests", "", "path to the analysis request fixture")
	reportsPath := flag.String("reports", "", "path to the expected impact report fixture")
	flag.Parse()

	if *requestsPath == "" || *reportsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*requestsPath, *reportsPath); code != 0 {
		os.Exit(code)
	}
}

func run(requestsPath, reportsPath string) int {
	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	fmt.Println("=== Hazard Impact Fixture Validation ===")
	fmt.Println()

	rawRequests, err := loadJSON[json.RawMessage](requestsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load requests: %v\n", err)
		return 1
	}
	expected, err := loadJSON[domain.ImpactReport](reportsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reports: %v\n", err)
		return 1
	}

	params := domain.DefaultParams()
	decoding, runs := replay(rawRequests, params)

	phases := []*phase{
		decoding,
		validateParity(runs, expected),
		validateSummaries(runs),
		validateMonotonicity(runs, params),
		validateArea(runs),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Requests: %d fixture, %d replayed, %d expected reports\n",
		len(rawRequests), len(runs), len(expected))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Request Decoding ──
// Every fixture request must parse and decode into a mask.

func replay(raw []json.RawMessage, params domain.Params) (*phase, []replayed) {
	p := &phase{name: "Phase 1: Request Decoding"}
	runs := make([]replayed, 0, len(raw))

	for i, data := range raw {
		req, err := domain.ParseAnalysisRequest(data)
		if err != nil {
			p.errorf("request %d: %v", i, err)
			continue
		}
		mask, err := domain.DecodeMask(req.Raster, params.HazardValue)
		if err != nil {
			p.errorf("request %s: %v", req.ID, err)
			continue
		}
		report := domain.NewImpactReport(req.ID, mask, req.Roads, domain.RoadSourceRequest, params)
		runs = append(runs, replayed{req: req, mask: mask, report: report})
	}
	return p, runs
}

// ── Phase 2: Report Parity ──
// Replayed reports must match the stored ones exactly, float noise aside.

func validateParity(runs []replayed, expected []domain.ImpactReport) *phase {
	p := &phase{name: "Phase 2: Report Parity"}

	byID := make(map[string]domain.ImpactReport, len(expected))
	for _, r := range expected {
		byID[r.ID] = r
	}
	if len(expected) != len(runs) {
		p.errorf("expected %d reports, replayed %d", len(expected), len(runs))
	}

	opts := cmp.Options{cmpopts.EquateApprox(0, 1e-9), cmpopts.EquateEmpty()}
	for _, run := range runs {
		want, ok := byID[run.report.ID]
		if !ok {
			p.errorf("%s: no expected report", run.report.ID)
			continue
		}
		if diff := cmp.Diff(want, run.report, opts); diff != "" {
			p.errorf("%s: report mismatch (-want +got):\n%s", run.report.ID, diff)
		}
	}
	return p
}

// ── Phase 3: Summary Consistency ──
// Summary counts must add up to the classifications and match them per outcome.

func validateSummaries(runs []replayed) *phase {
	p := &phase{name: "Phase 3: Summary Consistency"}

	for _, run := range runs {
		r := run.report
		if len(r.Classifications) != len(run.req.Roads) {
			p.errorf("%s: %d classifications for %d roads", r.ID, len(r.Classifications), len(run.req.Roads))
		}
		if got := domain.Summarize(r.Classifications); got != r.Summary {
			p.errorf("%s: summary %+v does not match classifications %+v", r.ID, r.Summary, got)
		}
		for i, c := range r.Classifications {
			if c.FeatureID != run.req.Roads[i].ID {
				p.errorf("%s: classification %d is for %q, want %q", r.ID, i, c.FeatureID, run.req.Roads[i].ID)
			}
		}
		if run.mask.HazardCount() == 0 && r.Summary.InHazard+r.Summary.NearHazard > 0 {
			p.errorf("%s: roads flagged on a mask without hazard cells", r.ID)
		}
	}
	return p
}

// ── Phase 4: Radius Monotonicity ──
// Growing the neighborhood can only move roads toward the hazard, never away.

func validateMonotonicity(runs []replayed, params domain.Params) *phase {
	p := &phase{name: "Phase 4: Radius Monotonicity"}

	for _, run := range runs {
		prev := domain.Classify(run.mask, run.req.Roads, 0)
		for radius := 1; radius <= 2*params.NeighborhoodRadius; radius++ {
			next := domain.Classify(run.mask, run.req.Roads, radius)
			for i := range next {
				if next[i].Outcome < prev[i].Outcome {
					p.errorf("%s: road %s went from %s to %s at radius %d",
						run.req.ID, next[i].FeatureID, prev[i].Outcome, next[i].Outcome, radius)
				}
				if (prev[i].Outcome == domain.InHazard) != (next[i].Outcome == domain.InHazard) {
					p.errorf("%s: road %s in-hazard status changed with radius %d",
						run.req.ID, next[i].FeatureID, radius)
				}
			}
			prev = next
		}
	}
	return p
}

// ── Phase 5: Area Arithmetic ──
// Area must equal hazard pixels times pixel area, using the method the CRS implies.

func validateArea(runs []replayed) *phase {
	p := &phase{name: "Phase 5: Area Arithmetic"}

	for _, run := range runs {
		r := run.report
		if r.Area == nil {
			p.errorf("%s: area missing: %s", r.ID, r.AreaFailure)
			continue
		}
		a := r.Area
		if a.Pixels != run.mask.HazardCount() {
			p.errorf("%s: area counts %d pixels, mask has %d", r.ID, a.Pixels, run.mask.HazardCount())
		}
		want := float64(a.Pixels) * a.PixelAreaM2 / 1e6
		if math.Abs(want-a.SquareKm) > 1e-9*math.Max(1, want) {
			p.errorf("%s: km2 %g, want %g", r.ID, a.SquareKm, want)
		}
		wantMethod := domain.AreaMethodPlanar
		if domain.IsGeographicCRS(run.mask.CRS()) {
			wantMethod = domain.AreaMethodGeodetic
		}
		if a.Method != wantMethod {
			p.errorf("%s: method %s for CRS %q, want %s", r.ID, a.Method, run.mask.CRS(), wantMethod)
		}
	}
	return p
}
