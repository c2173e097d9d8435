// Package telemetry renders attach-manager snapshots in the Prometheus text
// exposition format and reads them back.
//
// exposition.go builds dto.MetricFamily values from a types.Snapshot and
// encodes them with expfmt; Handler serves them on /metrics.
//
// scrape.go is the client side used by `rateboost status`: it fetches a
// /metrics endpoint, parses it with expfmt.TextParser and folds the
// families into a Summary.
package telemetry
