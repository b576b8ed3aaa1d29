package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		current  map[string]float64
		previous map[string]float64
		want     []Point
	}{
		{
			name: "both empty",
			want: []Point{},
		},
		{
			name:     "disjoint",
			current:  map[string]float64{"2025-05-03": 3, "2025-05-01": 1},
			previous: map[string]float64{"2025-04-20": 9},
			want: []Point{
				{Date: "2025-04-20", Value: 9},
				{Date: "2025-05-01", Value: 1},
				{Date: "2025-05-03", Value: 3},
			},
		},
		{
			name:     "current wins on collision",
			current:  map[string]float64{"2025-05-01": 1},
			previous: map[string]float64{"2025-05-01": 42, "2025-04-30": 5},
			want: []Point{
				{Date: "2025-04-30", Value: 5},
				{Date: "2025-05-01", Value: 1},
			},
		},
		{
			name:     "only previous",
			previous: map[string]float64{"2025-01-02": 2, "2024-12-31": 1},
			want: []Point{
				{Date: "2024-12-31", Value: 1},
				{Date: "2025-01-02", Value: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.current, tt.previous)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeIdempotent(t *testing.T) {
	current := map[string]float64{"2025-05-01": 1, "2025-05-02": 2}
	previous := map[string]float64{"2025-04-01": 7, "2025-05-02": 99}

	once := Merge(current, previous)
	again := Merge(FromSeries(once), previous)
	assert.Equal(t, once, again)

	self := Merge(FromSeries(once), FromSeries(once))
	assert.Equal(t, once, self)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	current := map[string]float64{"2025-05-01": 1}
	previous := map[string]float64{"2025-05-01": 2}

	Merge(current, previous)
	assert.Equal(t, map[string]float64{"2025-05-01": 1}, current)
	assert.Equal(t, map[string]float64{"2025-05-01": 2}, previous)
}
