package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

const (
	hourSec = 3600.0
	daySec  = 24 * hourSec
	weekSec = 7 * daySec
)

func TestClassifyThresholdTables(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	tests := []struct {
		name   string
		family Family
		value  float64
		want   Tier
	}{
		{"lead time one hour", LeadTime, hourSec, Elite},
		{"lead time exactly one day is elite", LeadTime, daySec, Elite},
		{"lead time just over a day", LeadTime, daySec + 1, High},
		{"lead time exactly one week is medium", LeadTime, weekSec, Medium},
		{"lead time exactly thirty days is low", LeadTime, 30 * daySec, Low},
		{"lead time zero", LeadTime, 0, Elite},

		{"restore in minutes", MeanTimeToRestore, 600, Elite},
		{"restore exactly one hour is high", MeanTimeToRestore, hourSec, High},
		{"restore exactly one day is medium", MeanTimeToRestore, daySec, Medium},
		{"restore exactly one week is low", MeanTimeToRestore, weekSec, Low},

		{"failure rate zero", ChangeFailureRate, 0, Elite},
		{"failure rate five is elite", ChangeFailureRate, 5, Elite},
		{"failure rate just over five", ChangeFailureRate, 5.01, High},
		{"failure rate ten is high", ChangeFailureRate, 10, High},
		{"failure rate fifteen is medium", ChangeFailureRate, 15, Medium},
		{"failure rate sixteen", ChangeFailureRate, 16, Low},

		{"daily deploys", DeploymentFrequency, 1, Elite},
		{"several deploys a day", DeploymentFrequency, 4.5, Elite},
		{"weekly deploys", DeploymentFrequency, 1.0 / 7.0, High},
		{"a few a month", DeploymentFrequency, 2.0 / 30.0, High},
		{"one a month", DeploymentFrequency, 1.0 / 30.0, Medium},
		{"none", DeploymentFrequency, 0, Low},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.family, f64(tt.value))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyNilIsUnavailable(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	for _, f := range Families() {
		got, err := c.Classify(f, nil)
		require.NoError(t, err)
		assert.Equal(t, Unavailable, got, f)
		assert.NotEqual(t, Low, got)
		assert.False(t, got.Available())
	}
}

func TestClassifyRejectsBadInput(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := c.Classify(LeadTime, f64(v))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "value %v", v)
	}

	_, err := c.Classify(Family("velocity"), f64(1))
	assert.Error(t, err)
}

func TestClassifyCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.ChangeFailureRate = Table{
		Elite:  Band{Limit: 1},
		High:   Band{Limit: 2},
		Medium: Band{Limit: 3},
	}
	c := NewClassifier(th)

	got, err := c.Classify(ChangeFailureRate, f64(1))
	require.NoError(t, err)
	assert.Equal(t, High, got, "exclusive band must not admit its limit")
	assert.Equal(t, th, c.Thresholds())
}

func TestCadenceOf(t *testing.T) {
	tests := []struct {
		perDay float64
		want   Cadence
	}{
		{2, Cadence{Count: 2, Interval: PerDay}},
		{1.0 / 7.0, Cadence{Count: 1, Interval: PerWeek}},
		{1.0 / 30.0, Cadence{Count: 1, Interval: PerMonth}},
		{0, Cadence{Count: 0, Interval: PerMonth}},
	}
	for _, tt := range tests {
		got := CadenceOf(tt.perDay)
		assert.Equal(t, tt.want.Interval, got.Interval)
		assert.InDelta(t, tt.want.Count, got.Count, 1e-9)
	}
}

func TestClassifyCadence(t *testing.T) {
	assert.Equal(t, Elite, ClassifyCadence(Cadence{Count: 1, Interval: PerDay}))
	assert.Equal(t, High, ClassifyCadence(Cadence{Count: 3, Interval: PerWeek}))
	assert.Equal(t, Medium, ClassifyCadence(Cadence{Count: 1, Interval: PerMonth}))
	assert.Equal(t, High, ClassifyCadence(Cadence{Count: 2, Interval: PerMonth}))
	assert.Equal(t, Low, ClassifyCadence(Cadence{Count: 0, Interval: PerMonth}))
	assert.Equal(t, Low, ClassifyCadence(Cadence{Count: 0.5, Interval: PerDay}))
}

func TestParseFamily(t *testing.T) {
	for in, want := range map[string]Family{
		"leadTime":             LeadTime,
		"lead-time":            LeadTime,
		"deployment-frequency": DeploymentFrequency,
		"changeFailureRate":    ChangeFailureRate,
		"cfr":                  ChangeFailureRate,
		"mttr":                 MeanTimeToRestore,
	} {
		got, err := ParseFamily(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFamily("uptime")
	assert.Error(t, err)
}

func TestTierRank(t *testing.T) {
	assert.Less(t, Elite.Rank(), High.Rank())
	assert.Less(t, High.Rank(), Medium.Rank())
	assert.Less(t, Medium.Rank(), Low.Rank())
	assert.Equal(t, -1, Unavailable.Rank())
}
