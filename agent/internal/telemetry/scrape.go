package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const defaultScrapeTimeout = 10 * time.Second

// Summary is the aggregate view `rateboost status` prints.
type Summary struct {
	Attachments  float64
	Passes       float64
	Writes       float64
	Rebases      float64
	AccessErrors float64
	// Handles is keyed by handle state.
	Handles map[string]float64
}

// NewClient returns the HTTP client used for scraping.
func NewClient() *http.Client {
	return &http.Client{Timeout: defaultScrapeTimeout}
}

// Fetch performs an HTTP GET to url and returns parsed metric families.
func Fetch(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return Parse(resp.Body)
}

// Parse decodes a text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func Parse(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse metrics text: %w", err)
	}
	return mfs, nil
}

// Sum adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil (metric not present in the scrape).
func Sum(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}

// Summarize folds scraped families into a Summary.
func Summarize(mfs map[string]*dto.MetricFamily) Summary {
	s := Summary{
		Attachments:  Sum(mfs[MetricAttachments]),
		Passes:       Sum(mfs[MetricPasses]),
		Writes:       Sum(mfs[MetricWrites]),
		Rebases:      Sum(mfs[MetricRebases]),
		AccessErrors: Sum(mfs[MetricAccessErrors]),
		Handles:      make(map[string]float64),
	}
	for _, m := range mfs[MetricHandles].GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "state" {
				s.Handles[lp.GetValue()] += m.GetGauge().GetValue()
			}
		}
	}
	return s
}
