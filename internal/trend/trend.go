package trend

import "sort"

// Point is one day of a chart series.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Merge unions two daily series into one ascending series. When both carry
// the same date the current value is kept. Missing days are not filled.
func Merge(current, previous map[string]float64) []Point {
	merged := make(map[string]float64, len(current)+len(previous))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range current {
		merged[k] = v
	}

	points := make([]Point, 0, len(merged))
	for k, v := range merged {
		points = append(points, Point{Date: k, Value: v})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}

// FromSeries turns a merged series back into a date keyed map.
func FromSeries(points []Point) map[string]float64 {
	out := make(map[string]float64, len(points))
	for _, p := range points {
		out[p.Date] = p.Value
	}
	return out
}
