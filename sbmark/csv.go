package sbmark

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

var csvHeader = []string{
	"client_env", "backend", "path", "sample", "key", "bytes",
	"ttfb_ms", "ttlb_ms", "dns_ms", "tcp_ms", "tls_ms", "srv_ms", "rest_ms",
}

// ToCsv writes one line per sampled download, preceded by a header line.
func ToCsv(report Report) ([]byte, error) {
	// array of csv records used to save the results
	csvRecords := [][]string{csvHeader}

	for _, record := range report.Records {
		// add the results to the csv array
		csvRecords = append(csvRecords, []string{
			report.ClientEnv,
			report.Backend,
			report.Path,
			fmt.Sprintf("%d", record.Sample),
			record.Key,
			fmt.Sprintf("%d", record.Bytes),
			fmt.Sprintf("%.3f", record.TimeToFirstByte),
			fmt.Sprintf("%.3f", record.TimeToLastByte),
			fmt.Sprintf("%.3f", record.DNSLookup),
			fmt.Sprintf("%.3f", record.TCPConnection),
			fmt.Sprintf("%.3f", record.TLSHandshake),
			fmt.Sprintf("%.3f", record.ServerProcessing),
			fmt.Sprintf("%.3f", record.Unassigned),
		})
	}

	b := &bytes.Buffer{}
	w := csv.NewWriter(b)
	if err := w.WriteAll(csvRecords); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
