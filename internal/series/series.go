// Package series turns raw inverter samples into the per-second power series
// that gets persisted.
package series

import (
	"sort"
	"time"
)

// RawSample is one vendor-reported instant. A nil Value stands for a null or
// non-numeric reading.
type RawSample struct {
	EpochMillis int64
	Value       *int64
}

// Point is a reading truncated to whole seconds.
type Point struct {
	Timestamp time.Time
	Watt      int64
}

// Watt returns the sample value as a non-negative wattage.
func (s RawSample) Watt() int64 {
	if s.Value == nil || *s.Value < 0 {
		return 0
	}
	return *s.Value
}

// Time returns the sample instant with the sub-second part discarded.
func (s RawSample) Time() time.Time {
	return time.UnixMilli(s.EpochMillis).Truncate(time.Second)
}

// Normalize groups samples by second and keeps the highest wattage seen in
// each second. Points come out in order of first appearance.
func Normalize(samples []RawSample) []Point {
	points := make([]Point, 0, len(samples))
	index := make(map[int64]int, len(samples))

	for _, s := range samples {
		ts := s.Time()
		watt := s.Watt()

		key := ts.Unix()
		if i, ok := index[key]; ok {
			points[i].Watt = max(points[i].Watt, watt)
			continue
		}
		index[key] = len(points)
		points = append(points, Point{Timestamp: ts, Watt: watt})
	}

	return points
}

// Reconcile drops the trailing zero reading the vendor emits at query time.
// When the newest timestamp carries both zero and positive readings, the zero
// readings at that timestamp are removed. Nothing else is touched and the
// remaining points keep their order.
func Reconcile(points []Point) []Point {
	if len(points) == 0 {
		return points
	}

	last := points[0].Timestamp
	for _, p := range points[1:] {
		if p.Timestamp.After(last) {
			last = p.Timestamp
		}
	}

	var hasZero, hasPositive bool
	for _, p := range points {
		if !p.Timestamp.Equal(last) {
			continue
		}
		if p.Watt == 0 {
			hasZero = true
		} else if p.Watt > 0 {
			hasPositive = true
		}
	}
	if !hasZero || !hasPositive {
		return points
	}

	kept := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Timestamp.Equal(last) && p.Watt == 0 {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// Sort returns a copy of points ordered by timestamp. Points sharing a
// timestamp keep their relative order.
func Sort(points []Point) []Point {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
