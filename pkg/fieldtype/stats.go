/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Per-field statistics: value count, cardinality, numeric range and mean, date
range and the most frequent values.
*/

package fieldtype

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kleascm/structfinder/pkg/structure"
	"github.com/kleascm/structfinder/pkg/timestamp"
)

func computeStats(values []Value, t structure.FieldType, dateFormat string, topN int) structure.FieldStats {
	stats := structure.FieldStats{Count: len(values)}
	counts := make(map[string]int)
	for _, v := range values {
		counts[strings.TrimSpace(v.Text)]++
	}
	stats.Cardinality = len(counts)
	stats.TopHits = topHits(counts, topN)

	switch {
	case IsNumeric(t):
		numericStats(&stats, values)
	case t == structure.TypeDate:
		dateStats(&stats, values, dateFormat)
	}
	return stats
}

func topHits(counts map[string]int, n int) []structure.TopHit {
	hits := make([]structure.TopHit, 0, len(counts))
	for v, c := range counts {
		hits = append(hits, structure.TopHit{Value: v, Count: c})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Count != hits[j].Count {
			return hits[i].Count > hits[j].Count
		}
		return hits[i].Value < hits[j].Value
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits
}

func numericStats(stats *structure.FieldStats, values []Value) {
	var minV, maxV, sum float64
	n := 0
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			continue
		}
		if n == 0 || f < minV {
			minV = f
		}
		if n == 0 || f > maxV {
			maxV = f
		}
		sum += f
		n++
	}
	if n == 0 {
		return
	}
	mean := sum / float64(n)
	stats.MinValue, stats.MaxValue, stats.MeanValue = &minV, &maxV, &mean
}

func dateStats(stats *structure.FieldStats, values []Value, name string) {
	f, ok := timestamp.Lookup(name)
	if !ok {
		return
	}
	var earliest, latest time.Time
	for _, v := range values {
		ts, ok := f.Parse(strings.TrimSpace(v.Text))
		if !ok {
			continue
		}
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
		if latest.IsZero() || ts.After(latest) {
			latest = ts
		}
	}
	if !earliest.IsZero() {
		stats.Earliest = earliest.Format(time.RFC3339Nano)
		stats.Latest = latest.Format(time.RFC3339Nano)
	}
}

// ApplyDate retypes a field as a date in the given format and recomputes its statistics
func ApplyDate(values []Value, formatName string, opts Options) Result {
	if opts.TopHits <= 0 {
		opts.TopHits = 10
	}
	var present []Value
	for _, v := range values {
		if v.Kind == KindNull || v.Kind == KindNested || strings.TrimSpace(v.Text) == "" {
			continue
		}
		present = append(present, v)
	}
	return Result{
		Type:       structure.TypeDate,
		DateFormat: formatName,
		Stats:      computeStats(present, structure.TypeDate, formatName, opts.TopHits),
	}
}
