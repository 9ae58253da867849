package alerts

// Filter selects a subset of the alert feed. Zero values match everything.
type Filter struct {
	Kind       Kind
	Severity   Severity
	UnreadOnly bool
}

// Match reports whether the record passes the filter.
func (f Filter) Match(record *AlertRecord) bool {
	if record == nil {
		return false
	}
	if f.Kind != "" && record.Kind != f.Kind {
		return false
	}
	if f.Severity != "" && record.Severity != f.Severity {
		return false
	}
	if f.UnreadOnly && record.Read {
		return false
	}
	return true
}

// FilterRecords returns the records passing the filter, preserving store order.
func FilterRecords(records []*AlertRecord, filter Filter) []*AlertRecord {
	out := make([]*AlertRecord, 0, len(records))
	for _, record := range records {
		if filter.Match(record) {
			out = append(out, record)
		}
	}
	return out
}

// Stats are presentation aggregates computed by full scan, never stored.
type Stats struct {
	TotalAlerts   int `json:"total_alerts"`
	UnreadCount   int `json:"unread_count"`
	CriticalCount int `json:"critical_count"`
	PhishingCount int `json:"phishing_count"`
}

// ComputeStats derives feed counters from a snapshot of the store.
func ComputeStats(records []*AlertRecord) Stats {
	stats := Stats{TotalAlerts: len(records)}
	for _, record := range records {
		if record == nil {
			continue
		}
		if !record.Read {
			stats.UnreadCount++
		}
		if record.Severity == SeverityCritical {
			stats.CriticalCount++
		}
		if record.Kind == KindPhishingDetected {
			stats.PhishingCount++
		}
	}
	return stats
}
