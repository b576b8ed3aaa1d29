package report

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rigdev/pulse/internal/compare"
	"github.com/rigdev/pulse/internal/metrics"
)

// FormatValue renders a raw family value for people. Nil is "n/a".
func FormatValue(f metrics.Family, v *float64) string {
	if v == nil {
		return "n/a"
	}
	switch f {
	case metrics.LeadTime, metrics.MeanTimeToRestore:
		return FormatDuration(*v)
	case metrics.DeploymentFrequency:
		c := metrics.CadenceOf(*v)
		return fmt.Sprintf("%s per %s", trimFloat(c.Count), c.Interval)
	case metrics.ChangeFailureRate:
		return trimFloat(*v) + "%"
	default:
		return trimFloat(*v)
	}
}

// FormatDuration renders seconds as minutes, hours or days.
func FormatDuration(seconds float64) string {
	switch {
	case seconds < 3600:
		return fmt.Sprintf("%.0fm", math.Round(seconds/60))
	case seconds < 48*3600:
		return trimFloat(seconds/3600) + "h"
	default:
		return trimFloat(seconds/86400) + "d"
	}
}

// FormatComparison renders a comparison as "+12%", "-3 pts" or "2.5x".
func FormatComparison(c *compare.Comparison, differenceBased bool) string {
	if c == nil {
		return "-"
	}
	switch {
	case c.Mode == compare.ModeMultiplier:
		return trimFloat(c.Delta) + "x"
	case differenceBased:
		return signed(c.Delta) + " pts"
	default:
		return signed(c.Delta) + "%"
	}
}

// trimFloat keeps at most one decimal.
func trimFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func signed(v float64) string {
	if v > 0 {
		return "+" + trimFloat(v)
	}
	return trimFloat(v)
}
