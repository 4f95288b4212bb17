package sbmark

import (
	"time"

	"github.com/montanaflynn/stats"
)

type Report struct {
	Description     string             `json:"description"`
	Backend         string             `json:"backend"`
	Endpoint        string             `json:"endpoint"`
	Path            string             `json:"path"`
	ClientEnv       string             `json:"client_env"` // Description of the environment from which the benchmark has been executed.
	DateTimeUTC     string             `json:"datetime_utc"`
	Samples         int                `json:"samples"`
	Threads         int                `json:"threads"`
	ListedObjects   int                `json:"listed_objects"`
	TotalBytes      int64              `json:"total_bytes"`
	DurationSeconds float64            `json:"duration_secs"`
	TimeToFirstByte map[string]float64 `json:"ttfb_latency"`
	TimeToLastByte  map[string]float64 `json:"ttlb_latency"`
	Distribution    map[string]float64 `json:"latency_distribution"` // averages of dns, tcp, tls, srv, rest
	Records         []Record           `json:"records"`
	Throughput      []ThroughputStep   `json:"throughput,omitempty"` // one entry per thread count of a throughput sweep
}

// Record is a single sampled download, all durations in milliseconds.
type Record struct {
	Sample           int     `json:"sample"`
	Key              string  `json:"key"`
	Bytes            int64   `json:"bytes"`
	TimeToFirstByte  float64 `json:"ttfb_ms"`
	TimeToLastByte   float64 `json:"ttlb_ms"`
	DNSLookup        float64 `json:"dns_ms"`
	TCPConnection    float64 `json:"tcp_ms"`
	TLSHandshake     float64 `json:"tls_ms"`
	ServerProcessing float64 `json:"srv_ms"`
	Unassigned       float64 `json:"rest_ms"`
}

func newRecord(sample int, key string, lat Latency) Record {
	return Record{
		Sample:           sample,
		Key:              key,
		Bytes:            lat.Bytes,
		TimeToFirstByte:  Millis(lat.FirstByte),
		TimeToLastByte:   Millis(lat.LastByte),
		DNSLookup:        Millis(lat.DNSLookup),
		TCPConnection:    Millis(lat.TCPConnection),
		TLSHandshake:     Millis(lat.TLSHandshake),
		ServerProcessing: Millis(lat.ServerProcessing),
		Unassigned:       Millis(lat.Unassigned()),
	}
}

func (r *Report) ThroughputMBps() float64 {
	return r.ThroughputBps() / 1024 / 1024
}

func (r *Report) ThroughputBps() float64 {
	if r.DurationSeconds <= 0 {
		return 0
	}
	return float64(r.TotalBytes) / r.DurationSeconds
}

// addRecords appends a record per sample, adds up the bytes and returns the
// time to last byte of every sample.
func (r *Report) addRecords(samples []string, latencies []Latency) []time.Duration {
	durations := make([]time.Duration, len(latencies))
	for i, lat := range latencies {
		durations[i] = lat.LastByte
		r.TotalBytes += lat.Bytes
		r.Records = append(r.Records, newRecord(i+1, samples[i], lat))
	}
	return durations
}

// summarize fills the aggregate maps from the records.
func (r *Report) summarize() {
	pick := func(f func(Record) float64) []float64 {
		values := make([]float64, len(r.Records))
		for i, rec := range r.Records {
			values[i] = f(rec)
		}
		return values
	}

	r.TimeToFirstByte = Summarize(pick(func(rec Record) float64 { return rec.TimeToFirstByte }))
	r.TimeToLastByte = Summarize(pick(func(rec Record) float64 { return rec.TimeToLastByte }))
	r.Distribution = map[string]float64{
		"dns":  Summarize(pick(func(rec Record) float64 { return rec.DNSLookup }))["avg"],
		"tcp":  Summarize(pick(func(rec Record) float64 { return rec.TCPConnection }))["avg"],
		"tls":  Summarize(pick(func(rec Record) float64 { return rec.TLSHandshake }))["avg"],
		"srv":  Summarize(pick(func(rec Record) float64 { return rec.ServerProcessing }))["avg"],
		"rest": Summarize(pick(func(rec Record) float64 { return rec.Unassigned }))["avg"],
	}
}

// Summarize computes avg, min, max, stdev and nearest rank percentiles.
// All values are zero for empty input.
func Summarize(values []float64) map[string]float64 {
	summary := map[string]float64{
		"avg": 0, "min": 0, "max": 0, "stdev": 0,
		"p25": 0, "p50": 0, "p75": 0, "p90": 0, "p99": 0,
	}
	if len(values) == 0 {
		return summary
	}

	data := stats.Float64Data(values)
	summary["avg"], _ = stats.Mean(data)
	summary["min"], _ = stats.Min(data)
	summary["max"], _ = stats.Max(data)
	summary["stdev"], _ = stats.StandardDeviation(data)
	summary["p25"], _ = stats.PercentileNearestRank(data, 25)
	summary["p50"], _ = stats.PercentileNearestRank(data, 50)
	summary["p75"], _ = stats.PercentileNearestRank(data, 75)
	summary["p90"], _ = stats.PercentileNearestRank(data, 90)
	summary["p99"], _ = stats.PercentileNearestRank(data, 99)
	return summary
}

// MeanMillis is the arithmetic mean of durations in milliseconds.
func MeanMillis(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}
	values := make([]float64, len(durations))
	for i, d := range durations {
		values[i] = Millis(d)
	}
	mean, _ := stats.Mean(values)
	return mean
}

func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
