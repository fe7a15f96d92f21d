package survey

import (
	"sort"
	"strings"
)

// Filter narrows a record set by zone, state, city and channel. An empty slice
// means no restriction on that dimension; values match case-insensitively.
type Filter struct {
	Zones    []string `query:"zone"`
	States   []string `query:"state"`
	Cities   []string `query:"city"`
	Channels []string `query:"channel"`
}

// IsZero reports whether the filter restricts nothing.
func (f *Filter) IsZero() bool {
	return len(f.Zones) == 0 && len(f.States) == 0 && len(f.Cities) == 0 && len(f.Channels) == 0
}

// Matches reports whether a single record passes every non-empty dimension.
func (f *Filter) Matches(r *Record) bool {
	return matches(r.Zone, f.Zones) &&
		matches(r.State, f.States) &&
		matches(r.City, f.Cities) &&
		matches(r.Channel, f.Channels)
}

// Apply returns the records matching every non-empty dimension. The input
// slice is never modified; record order is preserved.
func (f *Filter) Apply(records []Record) []Record {
	if f.IsZero() {
		return records
	}

	out := make([]Record, 0, len(records))
	for i := range records {
		if f.Matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func matches(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// FilterOptions lists the distinct values available for each filter dimension,
// sorted, for populating the sidebar.
type FilterOptions struct {
	Zones    []string `json:"zones"`
	States   []string `json:"states"`
	Cities   []string `json:"cities"`
	Channels []string `json:"channels"`
}

// Options collects distinct non-blank filter values from the records.
func Options(records []Record) FilterOptions {
	return FilterOptions{
		Zones:    distinct(records, func(r *Record) string { return r.Zone }),
		States:   distinct(records, func(r *Record) string { return r.State }),
		Cities:   distinct(records, func(r *Record) string { return r.City }),
		Channels: distinct(records, func(r *Record) string { return r.Channel }),
	}
}

func distinct(records []Record, field func(*Record) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range records {
		v := strings.TrimSpace(field(&records[i]))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
