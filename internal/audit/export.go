package audit

import (
	"bytes"
	"encoding/csv"
	"time"
)

var csvHeader = []string{"occurred_at", "routing_key", "user_uid", "user_ip", "user_agent", "event_id"}

// WriteCSV renders entries as CSV with a header row.
func WriteCSV(rows []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range rows {
		record := []string{
			e.OccurredAt.UTC().Format(time.RFC3339),
			e.RoutingKey,
			e.UserUID,
			e.UserIP,
			e.UserAgent,
			e.EventID,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
