package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/obsidianstack/rateboost/pkg/types"
)

// Metric names exposed on /metrics.
const (
	MetricAttachments  = "rateboost_attachments"
	MetricPasses       = "rateboost_passes_total"
	MetricWrites       = "rateboost_writes_total"
	MetricRebases      = "rateboost_rebases_total"
	MetricAccessErrors = "rateboost_access_errors_total"
	MetricHandles      = "rateboost_handles"
	MetricFactor       = "rateboost_factor"
	MetricValue        = "rateboost_attribute_value"
)

// Source provides the snapshot to expose.
type Source interface {
	Snapshot() types.Snapshot
}

// Families converts snap into metric families, sorted by name.
func Families(snap types.Snapshot) []*dto.MetricFamily {
	attachments := gaugeFamily(MetricAttachments, "Number of live attachments.")
	attachments.Metric = append(attachments.Metric, gauge(float64(len(snap.Attachments))))

	passes := counterFamily(MetricPasses, "Stabilization passes run.")
	writes := counterFamily(MetricWrites, "Attribute writes performed.")
	rebases := counterFamily(MetricRebases, "External writes detected and adopted as the new baseline.")
	accessErrs := counterFamily(MetricAccessErrors, "Handles skipped because of a read or write failure.")
	handles := gaugeFamily(MetricHandles, "Attribute handles by state.")
	factor := gaugeFamily(MetricFactor, "Configured scale factor.")
	value := gaugeFamily(MetricValue, "Last derived value per attribute.")

	for _, a := range snap.Attachments {
		id := label("attachment", a.ID)
		passes.Metric = append(passes.Metric, counter(float64(a.Counters.Passes), id))
		writes.Metric = append(writes.Metric, counter(float64(a.Counters.Writes), id))
		rebases.Metric = append(rebases.Metric, counter(float64(a.Counters.Rebases), id))
		accessErrs.Metric = append(accessErrs.Metric, counter(float64(a.Counters.AccessErrors), id))
		factor.Metric = append(factor.Metric, gauge(a.Factor, id))

		byState := map[string]int{
			types.HandleUninitialized: 0,
			types.HandleStable:        0,
			types.HandleInert:         0,
		}
		for _, h := range a.Handles {
			byState[h.State]++
			if h.State == types.HandleStable {
				value.Metric = append(value.Metric, gauge(h.Applied, id,
					label("owner", h.Owner), label("attribute", h.Attribute), label("class", h.Class)))
			}
		}
		states := make([]string, 0, len(byState))
		for s := range byState {
			states = append(states, s)
		}
		sort.Strings(states)
		for _, s := range states {
			handles.Metric = append(handles.Metric, gauge(float64(byState[s]), id, label("state", s)))
		}
	}

	out := []*dto.MetricFamily{attachments, passes, writes, rebases, accessErrs, handles, factor, value}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// Write encodes families in the text exposition format.
func Write(w io.Writer, families []*dto.MetricFamily) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("telemetry: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Handler serves src on GET /metrics.
func Handler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		if err := Write(w, Families(src.Snapshot())); err != nil {
			slog.Warn("telemetry: write metrics failed", "err", err)
		}
	})
}

func counterFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{Name: proto.String(name), Help: proto.String(help), Type: dto.MetricType_COUNTER.Enum()}
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{Name: proto.String(name), Help: proto.String(help), Type: dto.MetricType_GAUGE.Enum()}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

func counter(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{Label: labels, Counter: &dto.Counter{Value: proto.Float64(v)}}
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{Label: labels, Gauge: &dto.Gauge{Value: proto.Float64(v)}}
}
